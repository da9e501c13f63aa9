package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	apiKey    string
	timeout   string
	envVars   []string
	itemsJSON string
	generate  bool
)

func main() {
	root := &cobra.Command{
		Use:   "pyrunner-cli",
		Short: "CLI client for pyrunner",
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	root.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("PYRUNNER_API_KEY"), "API key")

	// Run command
	runCmd := &cobra.Command{
		Use:   "run [code]",
		Short: "Run Python code through the script pipeline",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRun,
	}
	runCmd.Flags().StringVar(&timeout, "timeout", "10s", "Execution timeout")
	runCmd.Flags().StringArrayVarP(&envVars, "env", "e", nil, "Environment variable KEY=VALUE (repeatable)")
	runCmd.Flags().StringVar(&itemsJSON, "items", "", "Input items as a JSON array")
	runCmd.Flags().BoolVar(&generate, "generate-only", false, "Compose the script without executing it")
	root.AddCommand(runCmd)

	// Run from file
	runFileCmd := &cobra.Command{
		Use:   "run-file [file]",
		Short: "Run Python code from a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunFile,
	}
	runFileCmd.Flags().StringVar(&timeout, "timeout", "10s", "Execution timeout")
	runFileCmd.Flags().StringArrayVarP(&envVars, "env", "e", nil, "Environment variable KEY=VALUE (repeatable)")
	runFileCmd.Flags().StringVar(&itemsJSON, "items", "", "Input items as a JSON array")
	runFileCmd.Flags().BoolVar(&generate, "generate-only", false, "Compose the script without executing it")
	root.AddCommand(runFileCmd)

	// Health check
	root.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE:  runHealth,
	})

	// List executions
	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recent executions",
		RunE:  runList,
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	var code string

	if len(args) > 0 {
		code = args[0]
	} else {
		// Read from stdin
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		code = string(data)
	}

	return submitCode(code)
}

func runRunFile(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	return submitCode(string(data))
}

func submitCode(code string) error {
	env := make(map[string]string, len(envVars))
	for _, kv := range envVars {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				env[kv[:i]] = kv[i+1:]
				break
			}
		}
	}

	payload := map[string]any{
		"code":    code,
		"timeout": timeout,
	}
	if len(env) > 0 {
		payload["env_vars"] = env
	}
	if itemsJSON != "" {
		var items []map[string]any
		if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
			return fmt.Errorf("parsing --items: %w", err)
		}
		wrapped := make([]map[string]any, 0, len(items))
		for _, it := range items {
			wrapped = append(wrapped, map[string]any{"json": it})
		}
		payload["items"] = wrapped
	}

	endpoint := "/run"
	if generate {
		endpoint = "/generate"
	}

	body, _ := json.Marshal(payload)

	req, err := http.NewRequest("POST", serverURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	client := &http.Client{Timeout: 70 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	if generate {
		if script, ok := result["script"].(string); ok {
			fmt.Println(script)
			return nil
		}
	}

	// Pretty print
	formatted, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(formatted))

	// Exit with the script exit code
	if res, ok := result["result"].(map[string]any); ok {
		if exitCode, ok := res["exit_code"].(float64); ok && exitCode != 0 {
			os.Exit(int(exitCode))
		}
	}

	return nil
}

func runHealth(_ *cobra.Command, _ []string) error {
	resp, err := http.Get(serverURL + "/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	var result map[string]any
	json.NewDecoder(resp.Body).Decode(&result)
	formatted, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(formatted))
	return nil
}

func runList(_ *cobra.Command, _ []string) error {
	req, _ := http.NewRequest("GET", serverURL+"/executions", nil)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result any
	json.NewDecoder(resp.Body).Decode(&result)
	formatted, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(formatted))
	return nil
}
