package main

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"text/tabwriter"
	"time"

	"clawtui/internal/config"
	"clawtui/internal/logging"
	"clawtui/internal/store"
	"clawtui/internal/types"
)

const version = "dev"

func printSessions(output io.Writer, snapshot *types.SessionSnapshot) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "KEY\tMODEL\tPROVIDER\tTOKENS\tUPDATED")
	for _, session := range snapshot.Sessions {
		info := types.SessionInfoFrom(session, snapshot.Defaults)
		tokens := "-"
		if info.TotalTokens > 0 {
			tokens = fmt.Sprintf("%d", info.TotalTokens)
			if info.ContextTokens > 0 {
				tokens += fmt.Sprintf("/%d", info.ContextTokens)
			}
		}
		updated := "-"
		if info.UpdatedAt != nil {
			updated = info.UpdatedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n", session.Key, dash(info.Model), dash(info.ModelProvider), tokens, updated)
	}
	_ = writer.Flush()
}

func dash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func cliLogger(cfg config.Config, stderr io.Writer) logging.Logger {
	return logging.New(stderr, logging.Options{
		Level:       logging.ParseLevel(cfg.LogLevel()),
		Development: cfg.Logging.Development,
	})
}

// openUILogger sends logs to ui.log while the terminal UI owns the screen.
func openUILogger(cfg config.Config) (logging.Logger, io.Closer, error) {
	path, err := config.UILogPath()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, err
	}
	return logging.NewFile(path, logging.Options{
		Level:       logging.ParseLevel(cfg.LogLevel()),
		Development: cfg.Logging.Development,
	})
}

func openRepository(cfg config.Config) (store.Repository, error) {
	paths, err := store.DefaultRepositoryPaths()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.StorageBackend(), paths)
}

func exitOnErr(label string, err error, stderr io.Writer) {
	if err == nil {
		return
	}
	fmt.Fprintf(stderr, "%s error: %v\n", label, err)
	os.Exit(1)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		var revision string
		var modified string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				revision = setting.Value
			case "vcs.modified":
				modified = setting.Value
			}
		}
		if revision != "" {
			if modified == "true" {
				return revision + "-dirty"
			}
			return revision
		}
	}

	exe, err := os.Executable()
	if err == nil {
		file, err := os.Open(exe)
		if err == nil {
			defer file.Close()
			hasher := sha256.New()
			if _, err := io.Copy(hasher, file); err == nil {
				sum := hasher.Sum(nil)
				return fmt.Sprintf("bin-%x", sum[:6])
			}
		}
	}

	return version
}
