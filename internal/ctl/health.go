package ctl

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Health checks daemon and component health via GET /healthz. The daemon
// returns plain "ok" by default and a per-component breakdown when asked
// for JSON, so this always asks for the breakdown.
func Health(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	req, err := http.NewRequest(http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		if jsonOutput {
			return printJSON(map[string]any{"healthy": false, "url": baseURL, "error": err.Error()})
		}
		return err
	}
	defer resp.Body.Close()

	var body struct {
		Healthy bool                      `json:"healthy"`
		Checks  map[string]map[string]any `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(map[string]any{"healthy": body.Healthy, "url": baseURL, "checks": body.Checks})
	}

	fmt.Println()
	if body.Healthy {
		fmt.Printf("  %s  fieldlined is healthy at %s\n", colorize(green, "HEALTHY"), colorize(dim, baseURL))
	} else {
		fmt.Printf("  %s  fieldlined reports problems at %s\n", colorize(red, "UNHEALTHY"), colorize(dim, baseURL))
	}

	names := make([]string, 0, len(body.Checks))
	for name := range body.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		check := body.Checks[name]
		ok, _ := check["ok"].(bool)
		mark := colorize(green, "ok")
		detail := ""
		if !ok {
			mark = colorize(red, "fail")
			if msg, has := check["error"].(string); has {
				detail = "  " + colorize(dim, msg)
			}
		}
		fmt.Printf("    %-14s %s%s\n", colorize(dim, name+":"), mark, detail)
	}
	fmt.Println()

	return nil
}
