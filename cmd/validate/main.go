// Package main provides a CLI tool for smoke-testing a running
// flowgraph server.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type endpoint struct {
	path        string
	method      string
	contentType string
	contains    []string
}

var endpoints = []endpoint{
	{path: "/api/health", method: "GET", contentType: "application/json", contains: []string{`"status":"ok"`}},
	{path: "/api/version", method: "GET", contentType: "application/json", contains: []string{`"version"`}},

	// Dataset routes 404 without an uploaded dataset, which still
	// proves routing and the registry are wired
	{path: "/datasets/unknown/options", method: "GET", contentType: "", contains: []string{"not found"}},
}

type result struct {
	endpoint endpoint
	status   int
	duration time.Duration
	err      error
	body     string
}

func main() {
	url := flag.String("url", "http://localhost:8080", "Base URL of the server to validate")
	verbose := flag.Bool("v", false, "Verbose output")
	timeout := flag.Int("timeout", 10, "Request timeout in seconds")
	flag.Parse()

	client := &http.Client{
		Timeout: time.Duration(*timeout) * time.Second,
	}

	fmt.Printf("Validating server at %s\n", *url)
	fmt.Printf("Testing %d endpoints...\n\n", len(endpoints))

	var passed, failed int

	for _, ep := range endpoints {
		res := check(client, *url, ep)

		ok := res.err == nil
		for _, want := range ep.contains {
			if !strings.Contains(res.body, want) {
				ok = false
			}
		}
		status := "PASS"
		if !ok {
			status = "FAIL"
			failed++
		} else {
			passed++
		}

		fmt.Printf("[%s] %-6s %-40s %d (%v)\n", status, ep.method, ep.path, res.status, res.duration.Round(time.Millisecond))
		if *verbose || !ok {
			if res.err != nil {
				fmt.Printf("       error: %v\n", res.err)
			} else if !ok {
				fmt.Printf("       body: %.200s\n", res.body)
			}
		}
	}

	fmt.Printf("\n%d passed, %d failed\n", passed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func check(client *http.Client, base string, ep endpoint) result {
	start := time.Now()

	req, err := http.NewRequest(ep.method, base+ep.path, nil)
	if err != nil {
		return result{endpoint: ep, err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return result{endpoint: ep, err: err, duration: time.Since(start)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	res := result{
		endpoint: ep,
		status:   resp.StatusCode,
		duration: time.Since(start),
		body:     string(body),
	}

	if ep.contentType != "" && !strings.Contains(resp.Header.Get("Content-Type"), ep.contentType) {
		res.err = fmt.Errorf("expected content type %s, got %s", ep.contentType, resp.Header.Get("Content-Type"))
	}

	return res
}
