package baseband

// Primary advertising channels.
const (
	FirstAdvChannel = 37
	LastAdvChannel  = 39
	numAdvChannels  = 3
)

// ChannelMap is the primary advertising channel map: bit 0 enables channel 37,
// bit 1 channel 38 and bit 2 channel 39.
type ChannelMap uint8

// AllAdvChannels enables the three primary advertising channels.
const AllAdvChannels ChannelMap = 0x07

// Has reports whether channel (37-39) is enabled in m.
func (m ChannelMap) Has(channel uint8) bool {
	if channel < FirstAdvChannel || channel > LastAdvChannel {
		return false
	}
	return m&(1<<(channel-FirstAdvChannel)) != 0
}

// Count returns the number of enabled channels.
func (m ChannelMap) Count() int {
	n := 0
	for i := 0; i < numAdvChannels; i++ {
		if m&(1<<i) != 0 {
			n++
		}
	}
	return n
}

// ChannelCursor walks the primary advertising channels of one advertising
// event. Start selects the slot (0-2) the walk begins at, which lets the host
// rotate the channel order between events.
type ChannelCursor struct {
	Start   uint8
	visited uint8
}

// Reset restarts the walk for a new advertising event.
func (c *ChannelCursor) Reset() {
	c.visited = 0
}

// Visited returns how many slots the cursor has consumed.
func (c *ChannelCursor) Visited() int {
	return int(c.visited)
}

// NextAdvertisingChannel returns the next enabled channel of m after the
// cursor and advances the cursor past it. Slots wrap modulo three and disabled
// channels are skipped; once all three slots have been visited the channel map
// is exhausted and ok is false.
func NextAdvertisingChannel(c *ChannelCursor, m ChannelMap) (channel uint8, ok bool) {
	for c.visited < numAdvChannels {
		slot := (c.Start + c.visited) % numAdvChannels
		c.visited++
		if m&(1<<slot) != 0 {
			return FirstAdvChannel + slot, true
		}
	}
	return 0, false
}
