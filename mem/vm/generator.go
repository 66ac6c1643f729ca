package vm

// Generate builds the initial state of a run. The first TotalFrames pages are
// resident and identity-mapped, loaded in ascending page order. The remaining
// pages start absent.
func Generate(cfg Config) (State, error) {
	if err := cfg.Validate(); err != nil {
		return State{}, err
	}

	totalFrames := cfg.TotalFrames()
	table := NewPageTable(cfg.TotalPages())
	queue := NewLoadQueue(int(totalFrames))

	for vpn := uint64(0); vpn < totalFrames; vpn++ {
		table.set(PageTableEntry{
			VPN:          vpn,
			PFN:          vpn,
			Present:      true,
			ArrivalOrder: int(vpn),
		})
		queue.Push(vpn)
	}

	return State{Table: table, Queue: queue}, nil
}
