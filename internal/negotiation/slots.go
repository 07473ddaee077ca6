package negotiation

// slotOverlap returns the same-day intersection of two slots in minutes from
// midnight, half-open [start, end). Zero-width or negative intersections
// report no overlap. Slots are assumed validated.
func slotOverlap(a, b DaySlot) (start, end int, ok bool) {
	if a.Day != b.Day {
		return 0, 0, false
	}
	s1, _ := ParseClock(a.Start)
	e1, _ := ParseClock(a.End)
	s2, _ := ParseClock(b.Start)
	e2, _ := ParseClock(b.End)
	s := max(s1, s2)
	e := min(e1, e2)
	if s >= e {
		return 0, 0, false
	}
	return s, e, true
}

// ChooseFeasibleSlot finds a window both parties can attend. It walks the
// buyer list in order and, per buyer slot, the provider list in order; the
// first intersection at least minDuration minutes wide wins. The emitted
// slot starts at the intersection start and lasts exactly minDuration: the
// smallest committing block, not the full overlap.
//
// First-found deliberately beats globally-earliest here; availability lists
// arrive in the order the buyer stated them, which is treated as preference
// order.
func ChooseFeasibleSlot(buyerSlots, providerSlots []DaySlot, minDuration int) (DaySlot, bool) {
	if minDuration < 1 {
		return DaySlot{}, false
	}
	for _, bs := range buyerSlots {
		for _, ps := range providerSlots {
			start, end, ok := slotOverlap(bs, ps)
			if !ok || end-start < minDuration {
				continue
			}
			return DaySlot{
				Day:   bs.Day,
				Start: formatClock(start),
				End:   formatClock(start + minDuration),
			}, true
		}
	}
	return DaySlot{}, false
}
