// tracedemo drives a small TraceBuilder run end-to-end and prints the
// resulting bundle, replacing the network-calling examples of this
// package's ancestor with something that exercises commitment and
// disclosure instead of an HTTP round trip.
//
// Try it by running:
//
//	go run ./cmd/tracedemo
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Flux-Point-Studios/poitrace"
)

func main() {
	debug := flag.Bool("debug", false, "enable poitrace debug logging")
	flag.Parse()
	poitrace.SetDebug(*debug)

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	builder, err := poitrace.NewTraceBuilder("agent-demo-1", map[string]any{"host": "local"})
	if err != nil {
		return fmt.Errorf("create trace builder: %w", err)
	}

	planSpan, err := builder.AddSpan(poitrace.SpanInput{Name: "plan", Visibility: poitrace.VisibilityPublic})
	if err != nil {
		return fmt.Errorf("add span: %w", err)
	}
	confidence := 82
	if _, err := builder.AddEvent(planSpan.SpanID, poitrace.EventInput{
		Kind: poitrace.EventKindDecision,
		Decision: &poitrace.DecisionPayload{
			Decision:   "list the working directory before editing anything",
			Reasoning:  "need to confirm the target file exists",
			Confidence: &confidence,
		},
	}); err != nil {
		return fmt.Errorf("add decision event: %w", err)
	}
	if _, err := builder.CloseSpan(planSpan.SpanID, poitrace.StatusCompleted); err != nil {
		return fmt.Errorf("close plan span: %w", err)
	}

	execSpan, err := builder.AddSpan(poitrace.SpanInput{Name: "execute", Visibility: poitrace.VisibilityPublic})
	if err != nil {
		return fmt.Errorf("add span: %w", err)
	}
	if _, err := builder.AddEvent(execSpan.SpanID, poitrace.EventInput{
		Kind:    poitrace.EventKindCommand,
		Command: &poitrace.CommandPayload{Command: "ls", Args: []string{"-la"}},
	}); err != nil {
		return fmt.Errorf("add command event: %w", err)
	}
	if _, err := builder.AddEvent(execSpan.SpanID, poitrace.EventInput{
		Kind:   poitrace.EventKindOutput,
		Output: &poitrace.OutputPayload{Stream: poitrace.StreamStdout, Content: "total 0\ndrwxr-xr-x ...\n"},
	}); err != nil {
		return fmt.Errorf("add output event: %w", err)
	}
	if _, err := builder.CloseSpan(execSpan.SpanID, poitrace.StatusCompleted); err != nil {
		return fmt.Errorf("close execute span: %w", err)
	}

	bundle, err := builder.Finalize()
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}

	if err := bundle.VerifyCommitments(); err != nil {
		return fmt.Errorf("verify commitments: %w", err)
	}

	manifest, _, err := poitrace.ChunkBundle(bundle, 0)
	if err != nil {
		return fmt.Errorf("chunk bundle: %w", err)
	}

	disclosure, err := poitrace.Disclose(bundle, []poitrace.SpanID{execSpan.SpanID}, poitrace.DisclosureMembership)
	if err != nil {
		return fmt.Errorf("disclose: %w", err)
	}
	if err := poitrace.VerifyDisclosure(disclosure, bundle.RootHash, bundle.MerkleRoot); err != nil {
		return fmt.Errorf("verify disclosure: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	fmt.Println("public view:")
	if err := enc.Encode(bundle.PublicView); err != nil {
		return err
	}
	fmt.Println("manifest:")
	if err := enc.Encode(manifest); err != nil {
		return err
	}
	fmt.Println("membership disclosure for the execute span:")
	return enc.Encode(disclosure)
}
