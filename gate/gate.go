// Package gate implements the novelty gate: the admission pipeline that
// decides whether a submitted artifact enters the vault.
//
// A submission moves through the states Received, Extracted, Embedded and
// then either Rejected (a near duplicate exists), or Anchoring followed by
// Anchored. The local insert happens only after both the content store and
// the registry have confirmed the anchor, so the vault never holds an entry
// the outside world cannot verify. All external calls complete before the
// vault's writer lock is taken.
package gate

import (
	"context"
	"errors"
	"time"

	"github.com/simvault/simvault"
	"github.com/simvault/simvault/anchor"
	"github.com/simvault/simvault/encode"
	"github.com/simvault/simvault/extract"
	"github.com/simvault/simvault/ledger"
	"github.com/simvault/simvault/registry"
)

// State is a submission's position in the admission pipeline.
type State string

const (
	StateReceived  State = "RECEIVED"
	StateExtracted State = "EXTRACTED"
	StateEmbedded  State = "EMBEDDED"
	StateRejected  State = "REJECTED"
	StateAnchoring State = "ANCHORING"
	StateAnchored  State = "ANCHORED"
	StateFailed    State = "FAILED"
)

// DefaultAnchorWait bounds how long a registry confirmation may take.
const DefaultAnchorWait = 120 * time.Second

// DefaultK is the number of neighbors consulted for the novelty check.
const DefaultK = 3

// Options configures a Gate.
type Options struct {
	// Threshold is the similarity threshold for rejection, interpreted in
	// the vault's metric: under L2 a distance below it rejects, under
	// cosine a score at or above it rejects.
	Threshold float32

	// K is the number of neighbors consulted. Defaults to DefaultK.
	K int

	// AnchorWait bounds the registry confirmation. Defaults to
	// DefaultAnchorWait.
	AnchorWait time.Duration

	// MaxPDFPages caps submitted PDFs. Defaults to extract.DefaultMaxPages.
	MaxPDFPages int

	// Logger logs pipeline transitions. Defaults to a noop logger.
	Logger *simvault.Logger

	// Metrics records anchoring outcomes. Defaults to noop.
	Metrics simvault.MetricsCollector
}

// Gate admits artifacts into a vault.
type Gate struct {
	vault    *simvault.Vault
	encoder  encode.Encoder
	store    anchor.Store
	registry registry.Registry
	opts     Options
}

// New creates a novelty gate over the given vault and collaborators.
func New(vault *simvault.Vault, enc encode.Encoder, store anchor.Store, reg registry.Registry, optFns ...func(o *Options)) (*Gate, error) {
	opts := Options{
		K:          DefaultK,
		AnchorWait: DefaultAnchorWait,
		Logger:     simvault.NoopLogger(),
		Metrics:    simvault.NoopMetricsCollector{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.K <= 0 {
		opts.K = DefaultK
	}
	if opts.AnchorWait <= 0 {
		opts.AnchorWait = DefaultAnchorWait
	}
	if opts.Logger == nil {
		opts.Logger = simvault.NoopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = simvault.NoopMetricsCollector{}
	}

	if enc.Dimension() != vault.Dimension() {
		return nil, &simvault.ErrDimensionMismatch{Expected: vault.Dimension(), Actual: enc.Dimension()}
	}

	return &Gate{
		vault:    vault,
		encoder:  enc,
		store:    store,
		registry: reg,
		opts:     opts,
	}, nil
}

// Submission is an artifact offered to the gate. Exactly one of Content or
// PDF should be set.
type Submission struct {
	// Record is the metadata to ledger if the artifact is admitted.
	Record ledger.Record

	// Content is pre-extracted text to embed.
	Content string

	// PDF is a raw patent PDF; the gate extracts its sections itself.
	PDF []byte

	// Threshold overrides the gate's configured threshold for this
	// submission only.
	Threshold *float32
}

// Outcome reports how a submission fared.
type Outcome struct {
	// State is the terminal pipeline state.
	State State

	// Ordinal is the vault position of the admitted entry. Valid only
	// when State is StateAnchored.
	Ordinal int

	// CID is the anchored content identifier.
	CID string

	// Ref is the registry confirmation reference.
	Ref string

	// Matches holds the nearest neighbors consulted for the novelty
	// check, best-first. On rejection the first entry is the blocker.
	Matches []simvault.Match

	// Sections holds extracted patent sections for PDF submissions.
	Sections extract.Sections
}

// Register runs a submission through the pipeline.
func (g *Gate) Register(ctx context.Context, sub Submission) (*Outcome, error) {
	out := &Outcome{State: StateReceived}

	content, err := g.extractContent(sub, out)
	if err != nil {
		out.State = StateFailed
		return out, err
	}
	out.State = StateExtracted

	vec, err := g.encoder.EncodeText(ctx, content)
	if err != nil {
		out.State = StateFailed
		return out, &simvault.ErrExtractionFailed{Reason: "embedding failed", Cause: err}
	}
	out.State = StateEmbedded

	threshold := g.opts.Threshold
	if sub.Threshold != nil {
		threshold = *sub.Threshold
	}

	verdict, err := g.vault.CheckSimilarity(ctx, vec, g.opts.K, threshold)
	if err != nil {
		out.State = StateFailed
		return out, err
	}
	out.Matches = verdict.Matches

	if verdict.Similar {
		// A rejection reports only the conflicting entries, not every
		// neighbor consulted.
		out.Matches = verdict.Conflicts
		out.State = StateRejected
		return out, nil
	}

	out.State = StateAnchoring

	cid, ref, err := g.anchorSubmission(ctx, sub, out)
	if err != nil {
		out.State = StateFailed
		return out, err
	}
	out.CID = cid
	out.Ref = ref

	rec := sub.Record
	rec.PDFCID = cid

	ordinal, err := g.vault.Insert(ctx, vec, rec)
	if err != nil {
		out.State = StateFailed
		return out, err
	}

	out.Ordinal = ordinal
	out.State = StateAnchored

	return out, nil
}

func (g *Gate) extractContent(sub Submission, out *Outcome) (string, error) {
	if len(sub.PDF) > 0 {
		sections, err := extract.PatentFromPDF(sub.PDF, g.opts.MaxPDFPages)
		if err != nil {
			return "", &simvault.ErrExtractionFailed{Reason: err.Error(), Cause: err}
		}

		out.Sections = sections
		return sections.Content(), nil
	}

	if sub.Content == "" {
		return "", &simvault.ErrExtractionFailed{Reason: "empty submission"}
	}

	return sub.Content, nil
}

// anchorSubmission pins the registration document and records it in the
// registry. Both must succeed before the caller may insert locally.
func (g *Gate) anchorSubmission(ctx context.Context, sub Submission, out *Outcome) (string, string, error) {
	start := time.Now()
	identity := sub.Record.Identity()

	doc := anchorDocument(sub.Record, out.Sections)

	cid, err := g.store.PinJSON(ctx, identity+".json", doc)
	if err != nil {
		err = &simvault.ErrAnchorUploadFailed{Cause: err}
		g.opts.Metrics.RecordAnchor(time.Since(start), err)
		g.opts.Logger.LogAnchor(ctx, identity, "", err)

		return "", "", err
	}

	waitCtx, cancel := context.WithTimeout(ctx, g.opts.AnchorWait)
	defer cancel()

	entry, err := g.registry.Record(waitCtx, identity, cid)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = &simvault.ErrAnchorTimeout{Wait: g.opts.AnchorWait, Cause: err}
		}
		g.opts.Metrics.RecordAnchor(time.Since(start), err)
		g.opts.Logger.LogAnchor(ctx, identity, cid, err)

		return "", "", err
	}

	g.opts.Metrics.RecordAnchor(time.Since(start), nil)
	g.opts.Logger.LogAnchor(ctx, identity, cid, nil)

	return cid, entry.Ref, nil
}

func anchorDocument(rec ledger.Record, sections extract.Sections) map[string]any {
	doc := map[string]any{
		"record": rec,
	}

	if sections.Abstract != "" {
		doc["title"] = sections.Title
		doc["abstract"] = sections.Abstract
		doc["claims"] = sections.Claims
	}

	return doc
}

// Lookup returns the registry entry for an identity.
func (g *Gate) Lookup(ctx context.Context, identity string) (registry.Entry, error) {
	return g.registry.Lookup(ctx, identity)
}
