// Package main implements the recall CLI for manual operations against
// the recalld HTTP server.
package main

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the recalld HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "CLI for recalld server operations",
	Long: `recall is a command-line interface for the recalld supportive memory server.
It stores happy memories, recalls them by similarity, and runs supportive chats.`,
	Version: version,
}

var (
	photoPath   string
	photoMood   string
	recallTopK  int
	sessionID   string
	clearFlag   bool
	chatSession string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "recalld server URL")

	rememberCmd.Flags().StringVar(&photoPath, "photo", "", "path to an image file to store as a photo memory")
	rememberCmd.Flags().StringVar(&photoMood, "mood", "", "mood label to store with the memory")
	recallCmd.Flags().IntVarP(&recallTopK, "top-k", "k", 3, "number of memories to recall")
	historyCmd.Flags().StringVar(&sessionID, "session", "", "chat session id")
	historyCmd.Flags().BoolVar(&clearFlag, "clear", false, "delete the session history instead of printing it")
	chatCmd.Flags().StringVar(&chatSession, "session", "", "chat session id")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(rememberCmd)
	rootCmd.AddCommand(recallCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(chatCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check recalld server health",
	RunE:  runHealth,
}

var rememberCmd = &cobra.Command{
	Use:   "remember [text]",
	Short: "Store a happy memory",
	Long: `Store a text or photo memory on the recalld server.

Examples:
  # Store a text memory
  recall remember "had a lovely picnic in the park"

  # Store a photo memory with a caption
  recall remember --photo beach.jpg "sunset at the beach"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRemember,
}

var recallCmd = &cobra.Command{
	Use:   "recall <query>",
	Short: "Recall memories similar to a query",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecall,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored memories",
	RunE:  runList,
}

var forgetCmd = &cobra.Command{
	Use:   "forget <id>",
	Short: "Delete a stored memory",
	Args:  cobra.ExactArgs(1),
	RunE:  runForget,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or clear chat history",
	RunE:  runHistory,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive supportive chat",
	Long: `Start an interactive chat session with the recalld server.
Type /exit to quit.`,
	RunE: runChat,
}

// Request and response bodies matching internal/http/types.go.

type storeMemoryRequest struct {
	Content string `json:"content,omitempty"`
	Photo   string `json:"photo,omitempty"`
	Caption string `json:"caption,omitempty"`
	Mood    string `json:"mood,omitempty"`
}

type memoryEntry struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	Mood      string    `json:"mood,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type recallResult struct {
	memoryEntry
	Score float32 `json:"score"`
}

type listMemoriesResponse struct {
	Memories []memoryEntry `json:"memories"`
	Count    int           `json:"count"`
}

type recallResponse struct {
	Query   string         `json:"query"`
	Results []recallResult `json:"results"`
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	SessionID string   `json:"session_id"`
	Reply     string   `json:"reply"`
	Provider  string   `json:"provider"`
	Mood      string   `json:"mood"`
	Memories  []string `json:"memories,omitempty"`
}

type historyTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type historyResponse struct {
	SessionID string        `json:"session_id"`
	Turns     []historyTurn `json:"turns"`
}

type clearHistoryResponse struct {
	Deleted int64 `json:"deleted"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

func runHealth(cmd *cobra.Command, args []string) error {
	var resp healthResponse
	if err := getJSON("/health", &resp); err != nil {
		return err
	}
	fmt.Printf("Server Status: %s\n", resp.Status)
	if resp.Version != "" {
		fmt.Printf("Version:       %s\n", resp.Version)
	}
	return nil
}

func runRemember(cmd *cobra.Command, args []string) error {
	req := storeMemoryRequest{Mood: photoMood}
	if len(args) > 0 {
		req.Content = args[0]
	}

	if photoPath != "" {
		data, err := os.ReadFile(photoPath)
		if err != nil {
			return fmt.Errorf("failed to read photo %s: %w", photoPath, err)
		}
		req.Photo = base64.StdEncoding.EncodeToString(data)
		req.Caption = req.Content
		req.Content = ""
	} else if req.Content == "" {
		return fmt.Errorf("memory text is required unless --photo is given")
	}

	var m memoryEntry
	if err := postJSON("/api/v1/memories", req, &m); err != nil {
		return err
	}
	fmt.Printf("Remembered [%s] %s\n", m.ID, m.Content)
	return nil
}

func runRecall(cmd *cobra.Command, args []string) error {
	path := fmt.Sprintf("/api/v1/memories/recall?q=%s&k=%d", url.QueryEscape(args[0]), recallTopK)

	var resp recallResponse
	if err := getJSON(path, &resp); err != nil {
		return err
	}
	if len(resp.Results) == 0 {
		fmt.Println("No memories found.")
		return nil
	}
	for i, r := range resp.Results {
		fmt.Printf("%d. (%.2f) %s\n", i+1, r.Score, r.Content)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	var resp listMemoriesResponse
	if err := getJSON("/api/v1/memories", &resp); err != nil {
		return err
	}
	if resp.Count == 0 {
		fmt.Println("No memories stored yet.")
		return nil
	}
	for _, m := range resp.Memories {
		fmt.Printf("[%s] %s  %s (%s)\n", m.ID, m.CreatedAt.Local().Format("2006-01-02"), m.Content, m.Kind)
	}
	return nil
}

func runForget(cmd *cobra.Command, args []string) error {
	if err := doRequest(http.MethodDelete, "/api/v1/memories/"+url.PathEscape(args[0]), nil, nil); err != nil {
		return err
	}
	fmt.Println("Forgotten.")
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := "/api/v1/chat/history"
	if sessionID != "" {
		path += "?session_id=" + url.QueryEscape(sessionID)
	}

	if clearFlag {
		var resp clearHistoryResponse
		if err := doRequest(http.MethodDelete, path, nil, &resp); err != nil {
			return err
		}
		fmt.Printf("Deleted %d messages.\n", resp.Deleted)
		return nil
	}

	var resp historyResponse
	if err := getJSON(path, &resp); err != nil {
		return err
	}
	if len(resp.Turns) == 0 {
		fmt.Println("No history.")
		return nil
	}
	for _, t := range resp.Turns {
		fmt.Printf("%s %s: %s\n", t.CreatedAt.Local().Format("15:04"), t.Role, t.Content)
	}
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	fmt.Println("Connected to recalld. Type /exit to quit.")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/exit" || line == "/quit" {
			break
		}

		var resp chatResponse
		err := postJSON("/api/v1/chat", chatRequest{Message: line, SessionID: chatSession}, &resp)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		chatSession = resp.SessionID
		fmt.Printf("recalld> %s\n", resp.Reply)
	}
	return scanner.Err()
}

func getJSON(path string, out interface{}) error {
	return doRequest(http.MethodGet, path, nil, out)
}

func postJSON(path string, body, out interface{}) error {
	return doRequest(http.MethodPost, path, body, out)
}

func doRequest(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	fullURL := serverURL + path
	req, err := http.NewRequest(method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", fullURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
