// Command socialctl calls the authentication API from a terminal.
package main

import (
	"bytes"
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

type client struct {
	BaseURL   string
	Token     string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, payload any, headers map[string]string) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, strings.TrimRight(c.BaseURL, "/")+path, body)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, b, err
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
	var env struct {
		Message string `json:"message"`
		Code    string `json:"code"`
		Data    struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if json.Unmarshal(body, &env) == nil && env.Message != "" {
		if env.Code != "" {
			fmt.Printf("status=%d code=%s message=%s\n", status, env.Code, env.Message)
			return
		}
		fmt.Printf("status=%d message=%s\n", status, env.Message)
		if env.Data.AccessToken != "" {
			fmt.Println(env.Data.AccessToken)
		}
		return
	}
	fmt.Printf("status=%d %s\n", status, strings.TrimSpace(string(body)))
}

// call runs a request and turns non-2xx replies into errors after printing them.
func (c *client) call(method, path string, payload any, headers map[string]string) error {
	status, body, err := c.do(method, path, payload, headers)
	if err != nil {
		return err
	}
	c.print(status, body)
	if status/100 != 2 {
		return fmt.Errorf("%s %s: status %d", method, path, status)
	}
	return nil
}

func main() {
	cl := &client{
		BaseURL:   envOr("SOCIALAUTH_URL", "http://localhost:8080"),
		Token:     os.Getenv("SOCIALAUTH_TOKEN"),
		OutFormat: envOr("SOCIALAUTH_OUT", "text"),
	}
	timeout := 30 * time.Second

	root := &cobra.Command{
		Use:           "socialctl",
		Short:         "Client for the social authentication API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cl.HTTP = &http.Client{Timeout: timeout}
		},
	}
	root.PersistentFlags().StringVar(&cl.BaseURL, "url", cl.BaseURL, "API base URL (env SOCIALAUTH_URL)")
	root.PersistentFlags().StringVar(&cl.Token, "token", cl.Token, "Bearer token for logout/me (env SOCIALAUTH_TOKEN)")
	root.PersistentFlags().StringVar(&cl.OutFormat, "out", cl.OutFormat, "Output format: json|text")
	root.PersistentFlags().DurationVar(&timeout, "timeout", timeout, "Request timeout")

	var email, pwd string
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": pwd}, nil)
		},
	}
	loginCmd.Flags().StringVar(&email, "email", "", "Account email")
	loginCmd.Flags().StringVar(&pwd, "password", "", "Account password")

	var userName, purchaseKey string
	signupCmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a password account",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]string{"user_name": userName, "email": email, "password": pwd}
			return cl.call(http.MethodPost, "/api/auth/signup", payload, map[string]string{"purchase-key": purchaseKey})
		},
	}
	signupCmd.Flags().StringVar(&userName, "name", "", "Display name")
	signupCmd.Flags().StringVar(&email, "email", "", "Account email")
	signupCmd.Flags().StringVar(&pwd, "password", "", "Account password")
	signupCmd.Flags().StringVar(&purchaseKey, "purchase-key", "", "Purchase key recorded with the signup")

	var (
		provider, providerID, socialName, socialEmail string
		socialToken, source, clientID                 string
		deviceToken, deviceType                       string
	)
	socialCmd := &cobra.Command{
		Use:   "social",
		Short: "Log in with a social provider credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" {
				return fmt.Errorf("--provider is required")
			}
			payload := map[string]string{
				"id":           providerID,
				"name":         socialName,
				"email":        socialEmail,
				"token":        socialToken,
				"source":       source,
				"device_token": deviceToken,
				"device_type":  deviceType,
			}
			path := "/api/auth/social?provider=" + url.QueryEscape(provider)
			return cl.call(http.MethodPost, path, payload, map[string]string{"clientId": clientID})
		},
	}
	f := socialCmd.Flags()
	f.StringVar(&provider, "provider", "", "apple|google|facebook|twitter|linkedin")
	f.StringVar(&providerID, "id", "", "Provider user id")
	f.StringVar(&socialName, "name", "", "Display name")
	f.StringVar(&socialEmail, "email", "", "Email reported by the client")
	f.StringVar(&socialToken, "credential", "", "Provider token (identity token or access token)")
	f.StringVar(&source, "source", "", "Apple sign-in source (website or app)")
	f.StringVar(&clientID, "client-id", "", "Client id sent in the clientId header")
	f.StringVar(&deviceToken, "device-token", "", "Push token to register")
	f.StringVar(&deviceType, "device-type", "", "Device type of the push token")

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Revoke every token of the current account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(http.MethodPost, "/api/auth/logout", nil, map[string]string{"purchase-key": purchaseKey})
		},
	}
	logoutCmd.Flags().StringVar(&purchaseKey, "purchase-key", "", "Purchase key recorded with the logout")

	meCmd := &cobra.Command{
		Use:   "me",
		Short: "Show the current account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(http.MethodGet, "/api/auth/me", nil, nil)
		},
	}

	root.AddCommand(loginCmd, signupCmd, socialCmd, logoutCmd, meCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
