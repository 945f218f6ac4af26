package cli

import (
	"io"
	"strings"
	"testing"
)

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"serve", "export", "import"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("expected %q command, got %v (%v)", name, cmd, err)
		}
	}
	if exportCmd.Flags().Lookup("out") == nil {
		t.Error("expected export --out flag")
	}
}

func TestImportRequiresFile(t *testing.T) {
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"import"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "file") {
		t.Fatalf("expected missing --file error, got %v", err)
	}
}
