package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"

	"github.com/strandlang/strand/ast"
)

// maxFetchBytes caps web_fetch response bodies so a misbehaving endpoint
// cannot flood a conversation.
const maxFetchBytes = 1 << 20

// RegisterBuiltins adds the standard tools every program may reference
// without declaring them: read_file, write_file, web_fetch, and json_parse.
func RegisterBuiltins(r *Registry) {
	r.Add(readFileTool())
	r.Add(writeFileTool())
	r.Add(webFetchTool(http.DefaultClient))
	r.Add(jsonParseTool())
}

func stringParam(name string) Parameter {
	return Parameter{Name: name, Type: &ast.TypeRef{Kind: ast.TypeString}}
}

func requireString(args []byte, name string) (string, error) {
	field := gjson.GetBytes(args, name)
	if !field.Exists() || field.Type != gjson.String {
		return "", fmt.Errorf("missing required parameter: %s", name)
	}
	return field.Str, nil
}

func readFileTool() Definition {
	return Definition{
		Name:        "read_file",
		Description: "Read contents of a file",
		Parameters:  []Parameter{stringParam("path")},
		Execute: func(_ context.Context, args []byte) (string, error) {
			path, err := requireString(args, "path")
			if err != nil {
				return "", err
			}
			data, err := os.ReadFile(filepath.Clean(path))
			if err != nil {
				return "", fmt.Errorf("failed to read file: %w", err)
			}
			return string(data), nil
		},
	}
}

func writeFileTool() Definition {
	return Definition{
		Name:        "write_file",
		Description: "Write content to a file",
		Parameters:  []Parameter{stringParam("path"), stringParam("content")},
		Execute: func(_ context.Context, args []byte) (string, error) {
			path, err := requireString(args, "path")
			if err != nil {
				return "", err
			}
			content, err := requireString(args, "content")
			if err != nil {
				return "", err
			}
			if err := os.WriteFile(filepath.Clean(path), []byte(content), 0o644); err != nil {
				return "", fmt.Errorf("failed to write file: %w", err)
			}
			return fmt.Sprintf("wrote %d bytes to %s", len(content), path), nil
		},
	}
}

func webFetchTool(client *http.Client) Definition {
	return Definition{
		Name:        "web_fetch",
		Description: "Fetch content from a URL. Returns the response body as text.",
		Parameters:  []Parameter{stringParam("url")},
		Execute: func(ctx context.Context, args []byte) (string, error) {
			url, err := requireString(args, "url")
			if err != nil {
				return "", err
			}
			reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
			if err != nil {
				return "", fmt.Errorf("request failed: %w", err)
			}
			resp, err := client.Do(req)
			if err != nil {
				return "", fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return "", fmt.Errorf("HTTP error: %s", resp.Status)
			}
			body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
			if err != nil {
				return "", fmt.Errorf("failed to read response: %w", err)
			}
			return string(body), nil
		},
	}
}

func jsonParseTool() Definition {
	return Definition{
		Name:        "json_parse",
		Description: "Parse a JSON string into an object or array",
		Parameters:  []Parameter{stringParam("text")},
		Execute: func(_ context.Context, args []byte) (string, error) {
			text, err := requireString(args, "text")
			if err != nil {
				return "", err
			}
			if !gjson.Valid(text) {
				return "", fmt.Errorf("failed to parse JSON: invalid syntax")
			}
			return gjson.Parse(text).Raw, nil
		},
	}
}
