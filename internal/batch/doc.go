// Package batch turns one upload request into a transcription archive.
//
// A Processor validates every item, saves the accepted ones into the run
// directory, transcribes the saved files concurrently and packs one archive
// entry per item. Only precondition failures and a batch where every item
// was rejected abort the request; everything else that goes wrong with a
// single item is recorded as an Outcome and ends up as an error_ entry in
// the archive.
//
//	p := batch.NewProcessor(rules, store, stage, metrics, log)
//	if err := p.Check(req); err != nil { ... } // before any disk work
//	res, err := p.Process(ctx, run, req)
//
// Outcomes are stored by the item's position in the request, so the archive
// does not depend on the order in which saves or provider calls complete.
package batch
