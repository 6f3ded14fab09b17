package executor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// CurlCommand renders the fully-resolved request as a runnable curl command.
func CurlCommand(method, url string, headers map[string]string, body []byte) string {
	parts := []string{fmt.Sprintf("curl --location --request %s '%s'", method, url)}

	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("--header '%s: %s'", name, headers[name]))
	}

	if len(body) > 0 {
		rendered := string(body)
		var pretty bytes.Buffer
		if json.Indent(&pretty, body, "", "    ") == nil {
			rendered = pretty.String()
		}
		parts = append(parts, fmt.Sprintf("--data-raw '%s'", rendered))
	}

	return strings.Join(parts, " \\\n")
}

// writeSmoke prints one transaction's curl rendition with a banner, for the
// bounded one-shot smoke run.
func writeSmoke(w io.Writer, transaction, userID string, iteration int, method, url string, headers map[string]string, body []byte) {
	fmt.Fprintf(w, "\n%s\n", debugSeparator)
	fmt.Fprintf(w, "SMOKE MODE - Transaction: %s\n", transaction)
	fmt.Fprintf(w, "User: %s | Iteration: %d\n", userID, iteration)
	fmt.Fprintf(w, "%s\n\nCURL Command:\n%s\n%s\n\n", debugSeparator, CurlCommand(method, url, headers, body), debugSeparator)
}
