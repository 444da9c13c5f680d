// Command votectl is a thin CLI wrapper over the votecore HTTP API: every
// subcommand is a single request to one endpoint.
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var apiURL string

func main() {
	root := &cobra.Command{
		Use:   "votectl",
		Short: "CLI for the votecore commit-reveal vote service",
	}
	root.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "base URL of the votecore API")

	root.AddCommand(
		createCmd(),
		getCmd(),
		listCmd(),
		commitCmd(),
		revealCmd(),
		resultsCmd(),
		verifyCmd(),
		templatesCmd(),
		templateCmd(),
		healthCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func request(method, path string, body any) (map[string]any, int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, apiURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var parsed map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil && err != io.EOF {
		return nil, resp.StatusCode, err
	}
	return parsed, resp.StatusCode, nil
}

func printAndExit(result map[string]any, status int, err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "request failed:", err)
		os.Exit(1)
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
	if status >= 300 {
		os.Exit(1)
	}
}

func createCmd() *cobra.Command {
	var title, description, templateID, creator, params string
	var commitHours, revealHours int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "create a new vote",
		Run: func(cmd *cobra.Command, args []string) {
			templateParams := map[string]any{}
			if params != "" {
				if err := json.Unmarshal([]byte(params), &templateParams); err != nil {
					fmt.Fprintln(os.Stderr, "invalid --params JSON:", err)
					os.Exit(1)
				}
			}
			body := map[string]any{"config": map[string]any{
				"title":               title,
				"description":         description,
				"template_id":         templateID,
				"template_params":     templateParams,
				"creator":             creator,
				"commitment_duration": commitHours * int(1e9) * 3600,
				"reveal_duration":     revealHours * int(1e9) * 3600,
			}}
			result, status, err := request(http.MethodPost, "/api/v1/votes", body)
			printAndExit(result, status, err)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "vote title")
	cmd.Flags().StringVar(&description, "description", "", "vote description")
	cmd.Flags().StringVar(&templateID, "template", "yes_no", "template id")
	cmd.Flags().StringVar(&creator, "creator", "", "creator identity")
	cmd.Flags().StringVar(&params, "params", "{}", "template params as JSON")
	cmd.Flags().IntVar(&commitHours, "commit-hours", 1, "commitment phase duration in hours")
	cmd.Flags().IntVar(&revealHours, "reveal-hours", 1, "reveal phase duration in hours")
	return cmd
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [vote-id]",
		Short: "fetch a vote by id",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			result, status, err := request(http.MethodGet, "/api/v1/votes/"+args[0], nil)
			printAndExit(result, status, err)
		},
	}
}

func listCmd() *cobra.Command {
	var status, creator string
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list votes",
		Run: func(cmd *cobra.Command, args []string) {
			path := fmt.Sprintf("/api/v1/votes?page=%d&page_size=%d&status=%s&creator=%s", page, pageSize, status, creator)
			result, st, err := request(http.MethodGet, path, nil)
			printAndExit(result, st, err)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&creator, "creator", "", "filter by creator")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "page size")
	return cmd
}

func commitCmd() *cobra.Command {
	var voter, hash, salt string
	cmd := &cobra.Command{
		Use:   "commit [vote-id]",
		Short: "submit a commitment",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			body := map[string]any{"voter": voter, "commitment_hash": hash, "salt": hex.EncodeToString([]byte(salt))}
			result, status, err := request(http.MethodPost, "/api/v1/votes/"+args[0]+"/commit", body)
			printAndExit(result, status, err)
		},
	}
	cmd.Flags().StringVar(&voter, "voter", "", "voter identity")
	cmd.Flags().StringVar(&hash, "hash", "", "commitment hash (64-char lowercase hex)")
	cmd.Flags().StringVar(&salt, "salt", "", "salt (will be hex-encoded on the wire)")
	return cmd
}

func revealCmd() *cobra.Command {
	var voter, value, salt string
	cmd := &cobra.Command{
		Use:   "reveal [vote-id]",
		Short: "submit a reveal",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var parsedValue any
			if err := json.Unmarshal([]byte(value), &parsedValue); err != nil {
				parsedValue = value
			}
			body := map[string]any{"voter": voter, "value": parsedValue, "salt": hex.EncodeToString([]byte(salt))}
			result, status, err := request(http.MethodPost, "/api/v1/votes/"+args[0]+"/reveal", body)
			printAndExit(result, status, err)
		},
	}
	cmd.Flags().StringVar(&voter, "voter", "", "voter identity")
	cmd.Flags().StringVar(&value, "value", "", "revealed ballot value (JSON, or a bare string)")
	cmd.Flags().StringVar(&salt, "salt", "", "salt used at commit time")
	return cmd
}

func resultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results [vote-id]",
		Short: "fetch aggregate results",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			result, status, err := request(http.MethodGet, "/api/v1/votes/"+args[0]+"/results", nil)
			printAndExit(result, status, err)
		},
	}
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [vote-id]",
		Short: "fetch and pretty-print a verification report",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			result, status, err := request(http.MethodGet, "/api/v1/votes/"+args[0]+"/verify", nil)
			if err != nil {
				fmt.Fprintln(os.Stderr, "request failed:", err)
				os.Exit(1)
			}
			printVerifyReport(result)
			if status >= 300 {
				os.Exit(1)
			}
		},
	}
}

func printVerifyReport(report map[string]any) {
	valid, _ := report["is_valid"].(bool)
	mark := "FAIL"
	if valid {
		mark = "OK"
	}
	fmt.Printf("verification: %s\n", mark)
	fmt.Printf("  total commitments : %v\n", report["total_commitments"])
	fmt.Printf("  verified          : %v\n", report["verified_commitments"])
	fmt.Printf("  failed            : %v\n", report["failed_commitments"])
	if issues, ok := report["issues"].([]any); ok && len(issues) > 0 {
		fmt.Println("  issues:")
		for _, issue := range issues {
			fmt.Printf("    - %v\n", issue)
		}
	}
}

func templatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "list available ballot templates",
		Run: func(cmd *cobra.Command, args []string) {
			result, status, err := request(http.MethodGet, "/api/v1/templates", nil)
			printAndExit(result, status, err)
		},
	}
}

func templateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template [template-id]",
		Short: "fetch a template's schema",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			result, status, err := request(http.MethodGet, "/api/v1/templates/"+args[0], nil)
			printAndExit(result, status, err)
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "check service health",
		Run: func(cmd *cobra.Command, args []string) {
			result, status, err := request(http.MethodGet, "/health", nil)
			printAndExit(result, status, err)
		},
	}
}
