package radiosim

const ringCapacity = 64

// ringBuffer keeps the last ringCapacity armed transfers.
type ringBuffer struct {
	data       [ringCapacity]Arm
	head, tail int // head = oldest, tail = next push
	count      int
}

func (rb *ringBuffer) push(a Arm) {
	if rb.count == ringCapacity {
		// Overwrite the oldest to keep memory bounded.
		rb.head = (rb.head + 1) % ringCapacity
		rb.count--
	}
	rb.data[rb.tail] = a
	rb.tail = (rb.tail + 1) % ringCapacity
	rb.count++
}

func (rb *ringBuffer) snapshot() []Arm {
	out := make([]Arm, 0, rb.count)
	i := rb.head
	for c := 0; c < rb.count; c++ {
		out = append(out, rb.data[i])
		i = (i + 1) % ringCapacity
	}
	return out
}
