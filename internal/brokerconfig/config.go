package brokerconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/giantswarm/kafkaenv/internal/netutil"
	"github.com/giantswarm/kafkaenv/internal/workspace"
)

// FileName is the name of the generated config file inside a workspace.
const FileName = "server.properties"

// entry is one key override, in the order it is applied and, when the key is
// absent from the template, appended.
type entry struct {
	key   string
	value string
}

// overrides returns the exact set of keys rewritten for one instance:
//
//   - log.dirs: the broker's storage path inside the workspace. Path
//     separators are normalized to forward slashes because the Java
//     properties format treats backslashes as escape characters.
//   - controller.quorum.voters: the single-node metadata quorum bound to
//     the controller port.
//   - listeners: client and controller listeners on the allocated pair.
//   - advertised.listeners: the address protocol clients are told to use.
//   - controller.listener.names: marks which listener carries controller
//     traffic.
//
// Every other template key is left untouched.
func overrides(dataDir string, ports netutil.PortPair) []entry {
	return []entry{
		{"log.dirs", filepath.ToSlash(dataDir)},
		{"controller.quorum.voters", fmt.Sprintf("1@localhost:%d", ports.Controller)},
		{"listeners", fmt.Sprintf("PLAINTEXT://:%d,CONTROLLER://:%d", ports.Client, ports.Controller)},
		{"advertised.listeners", fmt.Sprintf("PLAINTEXT://localhost:%d", ports.Client)},
		{"controller.listener.names", "CONTROLLER"},
	}
}

// propertyKey returns the key of a properties line, or "" if the line is
// blank, a comment, or has no separator. Only the '=' separator is handled;
// the broker's own config files use it exclusively.
func propertyKey(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "!") {
		return ""
	}
	key, _, found := strings.Cut(trimmed, "=")
	if !found {
		return ""
	}
	return strings.TrimSpace(key)
}

// Rewrite applies the instance overrides to a template. Lines whose key is
// not overridden are copied byte-for-byte; overridden keys are replaced in
// place with their canonical "key=value" form. Keys missing from the
// template are appended at the end.
func Rewrite(template []byte, dataDir string, ports netutil.PortPair) []byte {
	entries := overrides(dataDir, ports)
	values := make(map[string]string, len(entries))
	for _, e := range entries {
		values[e.key] = e.value
	}

	applied := make(map[string]bool, len(entries))
	var out bytes.Buffer

	// Normalize to \n line handling; the template ships with Unix endings.
	lines := strings.Split(string(template), "\n")
	for i, line := range lines {
		if i > 0 {
			out.WriteByte('\n')
		}
		key := propertyKey(line)
		if v, ok := values[key]; ok {
			out.WriteString(key + "=" + v)
			applied[key] = true
			continue
		}
		out.WriteString(line)
	}

	for _, e := range entries {
		if applied[e.key] {
			continue
		}
		if out.Len() > 0 && out.Bytes()[out.Len()-1] != '\n' {
			out.WriteByte('\n')
		}
		out.WriteString(e.key + "=" + e.value + "\n")
	}

	return out.Bytes()
}

// Generate reads the template, rewrites the instance-specific keys for the
// given workspace and port pair, and writes the result as server.properties
// inside the workspace. It returns the generated file's path. The file is
// immutable once written; nothing in the harness modifies it afterwards.
func Generate(templatePath, dir string, ports netutil.PortPair) (string, error) {
	template, err := os.ReadFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("read config template %s: %w", templatePath, err)
	}

	merged := Rewrite(template, workspace.DataDir(dir), ports)

	dst := filepath.Join(dir, FileName)
	if err := os.WriteFile(dst, merged, 0o600); err != nil {
		return "", fmt.Errorf("write config %s: %w", dst, err)
	}
	return dst, nil
}
