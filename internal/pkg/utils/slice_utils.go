package utils

// Batch splits a slice into consecutive chunks of at most batchSize items.
func Batch[T any](items []T, batchSize int) [][]T {
	if len(items) == 0 {
		return [][]T{}
	}
	if batchSize <= 0 {
		batchSize = len(items)
	}

	batches := make([][]T, 0, (len(items)+batchSize-1)/batchSize)
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}
