/*
datapipe builds composable, lazily-evaluated data pipelines over ordered streams of structured records.

A pipeline is composed fluently: a factory such as ReadSequence or FromSource starts a Builder,
operator methods chain transformations onto it, and AndReturn produces the Pipeline the host iterates:

	p, err := datapipe.ReadSequence(records).
		Map(tokenize, datapipe.WithSelector("text"), datapipe.WithParallelism(8)).
		Shuffle(1000).
		Bucket(16).
		Prefetch(4).
		AndReturn()

Each Next call recurses down the source tree, pulling from the leaves and applying operator logic
upward. Every operator preserves upstream order except Shuffle, which reorders within a window, and
RoundRobin, which interleaves its inputs; Zip combines its inputs in lock step.

Iteration can be paused and exactly resumed: RecordPosition captures the position of every source in
the tree, internal buffers included, onto a Tape whose tokens the host may persist, and
ReloadPosition restores it on a freshly built pipeline.

Concurrency stays internal to two operators. Map with a parallelism above one transforms items on a
bounded worker pool and reassembles the results in upstream order, never pulling more than pool-size
ahead of the oldest unconsumed result. Prefetch overlaps upstream production with consumer
processing through one background goroutine and a bounded queue. Iteration itself is single-consumer.

A pipeline that hits an unrecoverable error becomes broken: every further operation fails, reset
included. The host discards it and, if needed, rebuilds one from a last-known-good checkpoint.
Nothing is retried inside the engine; retry is host policy around Next. Hosts own the pipelines they
create and must reset or fully drain them before dropping them, so no background goroutine outlives
its pipeline.

Leaf sources that read concrete storage formats and the transform functions themselves live outside
this package: any type satisfying Source joins a pipeline through FromSource, and transforms are
plain functions over Record values.
*/

package datapipe
