// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "factory",
	Short: "Operator CLI for the factory orchestrator",
}

var (
	serverURL    string
	historyPath  string
	resetHistory bool
	outputPath   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server",
		envOr("FACTORY_URL", "http://localhost:12300"),
		"Base URL of the orchestrator")

	chatCmd.Flags().StringVar(&historyPath, "history", defaultHistoryPath(),
		"Path of the local conversation history file")
	chatCmd.Flags().BoolVar(&resetHistory, "reset", false,
		"Discard the stored conversation history before sending")

	dataDownloadCmd.Flags().StringVarP(&outputPath, "output", "o", "",
		"Write the snapshot to a file instead of stdout")

	dataCmd.AddCommand(dataStatusCmd, dataUploadCmd, dataDownloadCmd)
	rootCmd.AddCommand(chatCmd, dataCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".factory_history.json"
	}
	return filepath.Join(home, ".factory_history.json")
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Minute}
}

// =============================================================================
// chat
// =============================================================================

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Reply          string        `json:"reply"`
	UpdatedHistory []chatMessage `json:"updated_history"`
	InputFlagged   bool          `json:"input_flagged"`
	ToolsUsed      []string      `json:"tools_used"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var chatCmd = &cobra.Command{
	Use:   "chat \"message\"",
	Short: "Send one message to the assistant",
	Long: "Sends one message to the orchestrator, printing the reply. The " +
		"conversation history is kept in a local file so consecutive " +
		"invocations continue the same conversation.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var history []chatMessage
		if !resetHistory {
			if data, err := os.ReadFile(historyPath); err == nil {
				if err := json.Unmarshal(data, &history); err != nil {
					fmt.Fprintf(os.Stderr, "Ignoring unreadable history file %s: %v\n", historyPath, err)
					history = nil
				}
			}
		}

		body, err := json.Marshal(map[string]any{
			"message": args[0],
			"history": history,
		})
		if err != nil {
			return err
		}

		resp, err := httpClient().Post(serverURL+"/api/v1/chat", "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("could not reach the orchestrator at %s: %w", serverURL, err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			var apiErr errorResponse
			if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Code != "" {
				return fmt.Errorf("chat failed (%s): %s", apiErr.Code, apiErr.Message)
			}
			return fmt.Errorf("chat failed with status %d: %s", resp.StatusCode, respBody)
		}

		var chat chatResponse
		if err := json.Unmarshal(respBody, &chat); err != nil {
			return fmt.Errorf("could not parse the chat response: %w", err)
		}

		if chat.InputFlagged {
			fmt.Fprintln(os.Stderr, "Note: the message matched a prompt-injection signature and was logged.")
		}
		if len(chat.ToolsUsed) > 0 {
			fmt.Fprintf(os.Stderr, "Tools used: %v\n", chat.ToolsUsed)
		}
		fmt.Println(chat.Reply)

		if data, err := json.MarshalIndent(chat.UpdatedHistory, "", "  "); err == nil {
			if err := os.WriteFile(historyPath, data, 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "Could not save the history file: %v\n", err)
			}
		}
		return nil
	},
}

// =============================================================================
// data
// =============================================================================

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Manage the production snapshot",
}

var dataStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a production snapshot is loaded",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := httpClient().Get(serverURL + "/api/v1/data/status")
		if err != nil {
			return fmt.Errorf("could not reach the orchestrator at %s: %w", serverURL, err)
		}
		defer resp.Body.Close()
		return printJSONBody(resp)
	},
}

var dataUploadCmd = &cobra.Command{
	Use:   "upload <snapshot.json>",
	Short: "Replace the production snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("could not read %s: %w", args[0], err)
		}

		target, err := url.JoinPath(serverURL, "/api/v1/data/snapshot")
		if err != nil {
			return err
		}
		req, err := http.NewRequest(http.MethodPut, target, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := httpClient().Do(req)
		if err != nil {
			return fmt.Errorf("could not reach the orchestrator at %s: %w", serverURL, err)
		}
		defer resp.Body.Close()
		return printJSONBody(resp)
	},
}

var dataDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Fetch the current production snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := httpClient().Get(serverURL + "/api/v1/data/snapshot")
		if err != nil {
			return fmt.Errorf("could not reach the orchestrator at %s: %w", serverURL, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("download failed with status %d: %s", resp.StatusCode, body)
		}
		if outputPath != "" {
			if err := os.WriteFile(outputPath, body, 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote the snapshot to %s\n", outputPath)
			return nil
		}
		fmt.Println(string(body))
		return nil
	},
}

// printJSONBody relays a JSON response to stdout, surfacing API errors.
func printJSONBody(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr errorResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
			return fmt.Errorf("request failed (%s): %s", apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, body)
	}
	fmt.Println(string(body))
	return nil
}
