// Package bench drives the public channel operations repeatedly and reports
// latency and serialized-size statistics. It contains no protocol logic of
// its own.
package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taurusgroup/pedersen-channel/pkg/channel"
	"github.com/taurusgroup/pedersen-channel/pkg/pedersen"
	zkopening "github.com/taurusgroup/pedersen-channel/pkg/zk/opening"
)

// Timing summarizes one operation's latency over a run, in milliseconds.
type Timing struct {
	AvgMS float64 `json:"avg_ms" cbor:"avg_ms"`
	MinMS float64 `json:"min_ms" cbor:"min_ms"`
	MaxMS float64 `json:"max_ms" cbor:"max_ms"`
}

// Sizes reports the serialized sizes of the final state's wire fields.
type Sizes struct {
	CommitmentsBytes int `json:"commitments_bytes" cbor:"commitments_bytes"`
	SignaturesBytes  int `json:"signatures_bytes" cbor:"signatures_bytes"`
	ProofsBytes      int `json:"proofs_bytes" cbor:"proofs_bytes"`
}

// Result is the outcome of one benchmark run.
type Result struct {
	Iterations  int              `json:"iterations" cbor:"iterations"`
	Update      Timing           `json:"update" cbor:"update"`
	Sign        Timing           `json:"sign" cbor:"sign"`
	Verify      Timing           `json:"verify" cbor:"verify"`
	ProofVerify Timing           `json:"proof_verify" cbor:"proof_verify"`
	Sizes       Sizes            `json:"sizes" cbor:"sizes"`
	FinalState  channel.Snapshot `json:"latest_state" cbor:"latest_state"`
}

// Run opens a fresh channel and performs iterations rounds of payment,
// co-signing, signature verification and proof verification, timing each.
// Only public operations are used.
func Run(iterations int, group *pedersen.Parameters) (*Result, error) {
	if iterations <= 0 {
		return nil, errors.New("bench: iterations must be positive")
	}
	if group == nil {
		group = pedersen.DefaultParameters()
	}

	ch, err := channel.Open(1_000, 1_000, channel.WithParameters(group))
	if err != nil {
		return nil, fmt.Errorf("bench: open channel: %w", err)
	}

	participants := channel.Participants()
	updateSamples := make([]time.Duration, 0, iterations)
	signSamples := make([]time.Duration, 0, iterations)
	verifySamples := make([]time.Duration, 0, iterations)
	proofVerifySamples := make([]time.Duration, 0, iterations)

	for i := 0; i < iterations; i++ {
		payer := participants[i%2]
		delta := int64(1 + i%3) // rotate small deltas

		start := time.Now()
		if _, err := ch.ApplyPayment(payer, delta); err != nil {
			return nil, fmt.Errorf("bench: payment %d: %w", i, err)
		}
		updateSamples = append(updateSamples, time.Since(start))

		start = time.Now()
		for _, pid := range participants {
			if _, err := ch.SignState(pid); err != nil {
				return nil, fmt.Errorf("bench: sign %d: %w", i, err)
			}
		}
		signSamples = append(signSamples, time.Since(start))

		start = time.Now()
		if !ch.VerifySignatures() {
			return nil, fmt.Errorf("bench: signature verification failed at iteration %d", i)
		}
		verifySamples = append(verifySamples, time.Since(start))

		start = time.Now()
		state := ch.State()
		for _, pid := range participants {
			public := zkopening.Public{
				Aux:        group,
				Commitment: state.Commitment(pid),
				Context:    channel.ProofContext(ch.ID(), state.Sequence(), pid),
			}
			if !state.Proof(pid).Verify(public) {
				return nil, fmt.Errorf("bench: proof verification failed at iteration %d", i)
			}
		}
		proofVerifySamples = append(proofVerifySamples, time.Since(start))
	}

	snapshot := ch.State().Snapshot()
	sizes := Sizes{}
	for _, value := range snapshot.Commitments {
		sizes.CommitmentsBytes += len(value) / 2
	}
	for _, value := range snapshot.Signatures {
		sizes.SignaturesBytes += len(value) / 2
	}
	for _, proof := range snapshot.Proofs {
		sizes.ProofsBytes += (len(proof.T) + len(proof.ResponseM) + len(proof.ResponseR)) / 2
	}

	return &Result{
		Iterations:  iterations,
		Update:      summarize(updateSamples),
		Sign:        summarize(signSamples),
		Verify:      summarize(verifySamples),
		ProofVerify: summarize(proofVerifySamples),
		Sizes:       sizes,
		FinalState:  snapshot,
	}, nil
}

// RunParallel performs runs independent benchmark runs over separate
// channels, one goroutine per run.
func RunParallel(ctx context.Context, runs, iterations int, group *pedersen.Parameters) ([]*Result, error) {
	if runs <= 0 {
		return nil, errors.New("bench: runs must be positive")
	}

	results := make([]*Result, runs)
	g, ctx := errgroup.WithContext(ctx)
	for i := range results {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := Run(iterations, group)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func summarize(samples []time.Duration) Timing {
	if len(samples) == 0 {
		return Timing{}
	}
	min, max := samples[0], samples[0]
	var total time.Duration
	for _, sample := range samples {
		total += sample
		if sample < min {
			min = sample
		}
		if sample > max {
			max = sample
		}
	}
	toMS := func(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
	return Timing{
		AvgMS: toMS(total) / float64(len(samples)),
		MinMS: toMS(min),
		MaxMS: toMS(max),
	}
}
