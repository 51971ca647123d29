package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramshi122/crazy-time-predictor/internal/api"
	"github.com/ramshi122/crazy-time-predictor/internal/llm"
)

// Sample statistics sent to every provider endpoint.
const (
	probeRecent    = "1, 2, 5, 10, Pachinko, 1, 2, 5"
	probeFrequency = "1:20/60, 2:15/60, 5:10/60, 10:8/60, Pachinko:3/60"
)

var (
	probeURL     string
	probeTimeout time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check health, live data and every AI endpoint of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := &prober{
			base:   strings.TrimRight(probeURL, "/"),
			client: &http.Client{Timeout: probeTimeout},
			header: cfg.Server.Auth.Header,
			key:    cfg.Server.Auth.Key(),
			out:    cmd.OutOrStdout(),
		}
		_, err := p.run(cmd.Context())
		return err
	},
}

func init() {
	probeCmd.Flags().StringVar(&probeURL, "url", "http://localhost:3000", "server base URL")
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 20*time.Second, "per-request timeout")
}

// probeReport is the outcome of one probe run.
type probeReport struct {
	Health    bool
	LiveData  bool
	Spins     int
	Providers map[string]bool
}

// AnyProvider reports whether at least one model answered.
func (r probeReport) AnyProvider() bool {
	for _, ok := range r.Providers {
		if ok {
			return true
		}
	}
	return false
}

type prober struct {
	base   string
	client *http.Client
	header string
	key    string
	out    io.Writer
}

// run probes the server. It fails only when the health check fails; the
// other checks are reported.
func (p *prober) run(ctx context.Context) (probeReport, error) {
	rep := probeReport{Providers: map[string]bool{}}
	fmt.Fprintf(p.out, "Testing server at %s\n\n", p.base)

	var health api.HealthResponse
	if err := p.do(ctx, http.MethodGet, "/api/health", nil, &health); err != nil {
		fmt.Fprintf(p.out, "FAIL health: %v\n", err)
		return rep, fmt.Errorf("probe: server not reachable at %s: %w", p.base, err)
	}
	rep.Health = true
	fmt.Fprintf(p.out, "ok   health: %s\n", health.Status)
	if health.AnyConfigured {
		fmt.Fprintln(p.out, "ok   at least one AI provider is configured")
	} else {
		fmt.Fprintln(p.out, "warn no AI providers configured, rounds use the statistical models")
	}

	var live api.LiveDataResponse
	err := p.do(ctx, http.MethodGet, "/api/live-data", nil, &live)
	switch {
	case err != nil:
		fmt.Fprintf(p.out, "warn live data: %v\n", err)
	case !live.Success:
		fmt.Fprintf(p.out, "warn live data: %s\n", live.Error)
	default:
		rep.LiveData = true
		rep.Spins = len(live.Data)
		first := make([]string, 0, 5)
		for i := 0; i < len(live.Data) && i < 5; i++ {
			first = append(first, live.Data[i].Result)
		}
		fmt.Fprintf(p.out, "ok   live data: %d results from %s, first 5: %s\n",
			rep.Spins, live.Source, strings.Join(first, ", "))
	}

	body := api.ProviderRequest{Recent: probeRecent, Frequency: probeFrequency}
	for _, name := range []string{llm.Claude, llm.GPT, llm.Gemini} {
		var resp api.ProviderResponse
		rep.Providers[name] = false
		err := p.do(ctx, http.MethodPost, "/api/ai/"+name, body, &resp)
		switch {
		case err != nil:
			fmt.Fprintf(p.out, "FAIL %s: %v\n", name, err)
		case !resp.Success || resp.Data == nil:
			fmt.Fprintf(p.out, "warn %s: %s\n", name, resp.Error)
		default:
			rep.Providers[name] = true
			fmt.Fprintf(p.out, "ok   %s: %s (%d%%) %s\n",
				name, resp.Data.Prediction, resp.Data.Confidence, resp.Data.Reason)
		}
	}

	fmt.Fprintln(p.out)
	if rep.AnyProvider() {
		fmt.Fprintln(p.out, "At least one AI provider is working.")
	} else {
		fmt.Fprintln(p.out, "No AI providers working. Set ANTHROPIC_API_KEY, OPENAI_API_KEY or GOOGLE_API_KEY and restart the server.")
	}
	return rep, nil
}

// do sends a JSON request and decodes the JSON response into out. Error
// statuses with a JSON body decode too, so callers can read the message.
func (p *prober) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.key != "" && p.header != "" {
		req.Header.Set(p.header, p.key)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("%s %s: status %d: decode: %w", method, path, resp.StatusCode, err)
	}
	return nil
}
