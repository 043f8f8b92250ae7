// Package simvault provides an embedded near-duplicate similarity vault.
//
// A Vault pairs an exact (brute-force) kNN vector store with a metadata
// ledger kept in strict positional alignment: the record at ordinal i always
// describes the vector at position i. Inserts are atomic across the pair and
// both files are rewritten durably on every change.
//
// # Quick Start
//
//	v, _ := simvault.Open("data/vectors.svx", "data/metadata.json", 512)
//
//	ordinal, _ := v.Insert(ctx, embedding, ledger.Record{Filename: "sunset.png"})
//
//	res, _ := v.Search(ctx, queryEmbedding, 3)
//	for _, m := range res.Matches {
//	    fmt.Println(m.Record.Filename, m.Similarity)
//	}
//
// # Metrics
//
// Vaults rank by squared L2 distance by default. Cosine ranking stores
// L2-normalized vectors and reports inner products:
//
//	v, _ := simvault.Open(indexPath, metadataPath, 384,
//	    simvault.WithMetric(index.MetricCosine))
//
// An existing L2 vault opened under a cosine configuration is migrated in
// place; the reverse direction is refused.
//
// # Near-duplicate checks
//
// CheckSimilarity applies the metric-appropriate threshold direction:
//
//	verdict, _ := v.CheckSimilarity(ctx, embedding, 3, 50.0)
//	if verdict.Similar {
//	    // reject the submission
//	}
package simvault
