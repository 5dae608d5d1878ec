package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// ============================================================================
// Test Helpers
// ============================================================================

// createTempTestConfig creates a temporary YAML config file for testing
func createTempTestConfig(t *testing.T, data map[string]interface{}) string {
	t.Helper()

	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "test_config.yaml")

	yamlData, err := yaml.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	err = os.WriteFile(configFile, yamlData, 0644)
	if err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	return configFile
}

// testConfigData returns a valid feature service config pointing at baseURL.
func testConfigData(baseURL string, notifier map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"source": map[string]interface{}{
			"type":            "featureservice",
			"timeout_seconds": 5,
			"feature_service": map[string]interface{}{"page_size": 100},
		},
		"checks": map[string]interface{}{
			"bird_nests": map[string]interface{}{
				"parent": map[string]interface{}{"layer": baseURL + "/FeatureServer/0"},
				"child":  map[string]interface{}{"layer": baseURL + "/FeatureServer/1"},
				"notification": map[string]interface{}{
					"found": map[string]interface{}{
						"to": []string{"gis@example.com"},
						"cc": []string{"bio@example.com"},
					},
					"clear": map[string]interface{}{
						"to": []string{"gis@example.com"},
					},
				},
			},
		},
		"notifier": notifier,
		"logging": map[string]interface{}{
			"level":  "error",
			"format": "json",
			"output": "stderr",
		},
	}
}

// featureServer serves a parent layer at /FeatureServer/0 and a child layer
// at /FeatureServer/1 from the given attribute JSON arrays.
func featureServer(t *testing.T, parents, children string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var features string
		switch {
		case strings.HasPrefix(r.URL.Path, "/FeatureServer/0/query"):
			features = parents
		case strings.HasPrefix(r.URL.Path, "/FeatureServer/1/query"):
			features = children
		default:
			fmt.Fprint(w, `{"id":0,"name":"layer"}`)
			return
		}
		fmt.Fprintf(w, `{"features":%s,"exceededTransferLimit":false}`, features)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// executeRoot runs the root command with args and returns its output.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	origCfgFile, origEnvFile := cfgFile, envFile
	origLogLevel, origLogFormat := logLevel, logFormat
	origTimeout, origSkip := timeoutSeconds, skipNotify
	origJob, origDryRun := checkJob, checkDryRun
	t.Cleanup(func() {
		cfgFile, envFile = origCfgFile, origEnvFile
		logLevel, logFormat = origLogLevel, origLogFormat
		timeoutSeconds, skipNotify = origTimeout, origSkip
		checkJob, checkDryRun = origJob, origDryRun
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	// Flag values persist across executions in one process
	checkDryRun = false
	skipNotify = false

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "absent.env")))

	err := rootCmd.Execute()
	return buf.String(), err
}
