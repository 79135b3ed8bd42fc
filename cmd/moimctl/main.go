package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL    string
	SessionID  string
	CookieName string
	OutFormat  string // "json" | "text"
	HTTP       *http.Client
}

func (c *client) do(method, path string) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return 0, nil, err
	}
	if c.SessionID != "" {
		req.AddCookie(&http.Cookie{Name: c.CookieName, Value: c.SessionID})
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func main() {
	var (
		baseURL    = envOr("MOIMLINK_URL", "http://localhost:8080")
		sessionID  = envOr("MOIMLINK_SESSION", "")
		cookieName = envOr("MOIMLINK_COOKIE", "sid")
		out        = envOr("MOIMLINK_OUT", "text")
	)

	root := &cobra.Command{
		Use:   "moimctl",
		Short: "Operator CLI for the moimlink service",
	}

	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "service base URL (env MOIMLINK_URL)")
	root.PersistentFlags().StringVar(&sessionID, "session", sessionID, "session cookie value (env MOIMLINK_SESSION)")
	root.PersistentFlags().StringVar(&cookieName, "cookie", cookieName, "session cookie name (env MOIMLINK_COOKIE)")
	root.PersistentFlags().StringVar(&out, "out", out, "output format: json|text")

	cl := &client{HTTP: &http.Client{Timeout: 30 * time.Second}}
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cl.BaseURL = baseURL
		cl.SessionID = sessionID
		cl.CookieName = cookieName
		cl.OutFormat = out
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check service health",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/healthz")
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("unhealthy: status=%d body=%s", status, string(body))
			}
			if cl.OutFormat == "text" {
				fmt.Println("ok")
				return nil
			}
			cl.print(status, body)
			return nil
		},
	}

	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage linked accounts of the session's user",
	}

	requireSession := func(cmd *cobra.Command, args []string) error {
		if sessionID == "" {
			return fmt.Errorf("missing session (flag --session or env MOIMLINK_SESSION)")
		}
		return nil
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List linked accounts",
		PreRunE: requireSession,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/v1/accounts")
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("list failed: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}

	unlinkCmd := &cobra.Command{
		Use:     "unlink <account-id>",
		Short:   "Remove one linked account",
		Args:    cobra.ExactArgs(1),
		PreRunE: requireSession,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("DELETE", "/v1/accounts/"+args[0])
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("unlink failed: status=%d body=%s", status, string(body))
			}
			if cl.OutFormat == "text" {
				fmt.Println("unlinked")
				return nil
			}
			cl.print(status, body)
			return nil
		},
	}

	accountsCmd.AddCommand(listCmd, unlinkCmd)
	root.AddCommand(healthCmd, accountsCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
