package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jywlabs/scriptwiz/internal/storage"
	"github.com/jywlabs/scriptwiz/internal/template"
)

func TestInitProject(t *testing.T) {
	tests := []struct {
		name       string
		setupFn    func(dir string)
		wantErr    bool
		wantOutput string
		checkFn    func(t *testing.T, dir string)
	}{
		{
			name:       "creates default files and directories",
			wantOutput: "Initialized",
			checkFn: func(t *testing.T, dir string) {
				for _, f := range []string{template.ConfigFile, template.PromptsFile, template.EnvExampleFile} {
					if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
						t.Errorf("%s not created: %v", f, err)
					}
				}
				for _, d := range []string{storage.SessionsDir, template.ExportsDir} {
					info, err := os.Stat(filepath.Join(dir, d))
					if err != nil || !info.IsDir() {
						t.Errorf("%s directory not created", d)
					}
				}
			},
		},
		{
			name: "refuses an existing directory",
			setupFn: func(dir string) {
				os.MkdirAll(dir, 0755)
				os.WriteFile(filepath.Join(dir, template.PromptsFile), []byte("custom"), 0644)
			},
			wantErr: true,
			checkFn: func(t *testing.T, dir string) {
				data, _ := os.ReadFile(filepath.Join(dir, template.PromptsFile))
				if string(data) != "custom" {
					t.Errorf("existing prompts file was overwritten: %q", data)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), template.ProjectDir)
			if tt.setupFn != nil {
				tt.setupFn(dir)
			}

			var buf bytes.Buffer
			err := initProject(dir, &buf)
			if (err != nil) != tt.wantErr {
				t.Fatalf("initProject() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantOutput != "" && !strings.Contains(buf.String(), tt.wantOutput) {
				t.Errorf("output %q does not contain %q", buf.String(), tt.wantOutput)
			}
			if tt.checkFn != nil {
				tt.checkFn(t, dir)
			}
		})
	}
}
