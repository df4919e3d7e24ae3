package realtime

// TrackedTrips returns how many trips have a remembered payload.
func (h *Hub) TrackedTrips() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.last)
}
