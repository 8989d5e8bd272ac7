//go:build docs

package main

import (
	"fmt"
	"os"
	"path"
	"strings"

	log "github.com/rs/zerolog"
	"github.com/spf13/cobra/doc"

	"github.com/maxgio92/pyperf/internal/config"
	"github.com/maxgio92/pyperf/internal/settings"
	"github.com/maxgio92/pyperf/pkg/cmd"
)

const (
	docsDir        = "docs"
	configDocFile  = "configuration.md"
	templateMarker = "{{ .CLI_REFERENCE }}"
	configMarker   = "{{ .CONFIG_REFERENCE }}"
)

func linkHandler(filename string) string {
	if filename == settings.CmdName+".md" {
		// This is the root command.
		return "README.md"
	}
	return path.Join(docsDir, filename)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	root := cmd.NewCommand(
		cmd.NewOptions(
			cmd.WithLogger(log.New(os.Stderr).Level(log.InfoLevel)),
		),
	)
	if err := doc.GenMarkdownTreeCustom(root, docsDir, func(string) string { return "" }, linkHandler); err != nil {
		return err
	}

	configDoc, err := writeConfigDoc()
	if err != nil {
		return err
	}

	readme, err := os.ReadFile("README.md.tpl")
	if err != nil {
		return fmt.Errorf("failed to read README template: %w", err)
	}
	cmdDocs, err := os.ReadFile(path.Join(docsDir, settings.CmdName+".md"))
	if err != nil {
		return fmt.Errorf("failed to read CLI doc README: %w", err)
	}

	final := strings.Replace(string(readme), templateMarker, string(cmdDocs), 1)
	final = strings.Replace(final, configMarker, configDoc, 1)

	return os.WriteFile("README.md", []byte(final), 0o644)
}

// writeConfigDoc documents the default configuration, as written by
// config.Encode.
func writeConfigDoc() (string, error) {
	var b strings.Builder
	b.WriteString("## Configuration\n\n")
	fmt.Fprintf(&b, "Read from `%s` unless `--config` is given. The defaults are:\n\n", settings.ConfigFile)
	b.WriteString("```yaml\n")
	if err := config.Default().Encode(&b); err != nil {
		return "", err
	}
	b.WriteString("```\n")

	doc := b.String()
	if err := os.WriteFile(path.Join(docsDir, configDocFile), []byte(doc), 0o644); err != nil {
		return "", err
	}

	return doc, nil
}
