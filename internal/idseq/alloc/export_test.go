package alloc

// NextBatchSize exposes the batch sizing policy for white-box tests.
var NextBatchSize = nextBatchSize
