package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# BlockFS Configuration File
#
# Values here are overridden by BLOCKFS_* environment variables
# (e.g. BLOCKFS_LOGGING_LEVEL=DEBUG, BLOCKFS_DISK_CAPACITY=2097152).
`

// fieldComments maps dotted key paths to the comment written above them.
var fieldComments = map[string]string{
	"logging":        "Diagnostic logging",
	"logging.level":  "DEBUG, INFO, WARN or ERROR",
	"logging.format": "text or json",
	"logging.output": "stdout, stderr or a file path",
	"disk":           "Backing container (the virtual disk)",
	"disk.type":      "file, memory or badger",
	"disk.capacity":  "Container size in bytes used by format (first 4096 bytes hold the file table)",
	"disk.file":      "Used when type is file",
	"disk.badger":    "Used when type is badger",
	"oplog":          "Append-only operation log, one timestamped line per call",
	"backup":         "Destination for backup and restore",
	"backup.type":    "file or s3",
	"backup.file":    "Used when type is file",
	"backup.s3":      "Used when type is s3; endpoint is for MinIO/Localstack",
	"metrics":        "Prometheus metrics, written to textfile after every command",
}

// InitConfig writes a commented sample configuration to the default
// location and returns its path.
//
// Parameters:
//   - force: overwrite an existing file
//
// Returns:
//   - string: path of the written file
//   - error: the file already exists (without force) or cannot be written
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a commented sample configuration to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// generateYAMLWithComments renders cfg as YAML with explanatory comments on
// the sections and fields listed in fieldComments.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var root yaml.Node
	if err := root.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	annotate(&root, "")

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	buf.WriteString("\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}

	return buf.String(), nil
}

// annotate walks mapping nodes and attaches head comments to known keys.
func annotate(node *yaml.Node, prefix string) {
	if node.Kind == yaml.DocumentNode {
		for _, child := range node.Content {
			annotate(child, prefix)
		}
		return
	}
	if node.Kind != yaml.MappingNode {
		return
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		path := key.Value
		if prefix != "" {
			path = prefix + "." + key.Value
		}
		if comment, ok := fieldComments[path]; ok {
			key.HeadComment = comment
		}
		annotate(value, path)
	}
}
