package substrate

import "fmt"

// planLayout walks the channels in registration order and assigns each
// channel (and each sub-channel, in its own order) a contiguous run of
// depth slots starting at the reserved prefix. The assignment is a pure
// function of registration order, so identical inputs always produce the
// identical index tree; downstream kernels hard-code the offsets it yields.
//
// Runs in O(channels + sub-channels). Returns the frozen index and the
// total depth of the backing store.
func planLayout(channels []*Channel, reserved int) (*Index, int, error) {
	ix := newIndex()
	cursor := reserved

	for _, ch := range channels {
		if len(ch.subs) == 0 {
			if ch.depth < 1 {
				return nil, 0, fmt.Errorf("%w: channel %q has depth %d", ErrInvalidShape, ch.Name, ch.depth)
			}
			r := Range{Lo: cursor, Hi: cursor + ch.depth}
			if err := ix.add(ch.Name, r); err != nil {
				return nil, 0, err
			}
			cursor = r.Hi
			continue
		}

		lo := cursor
		for _, sc := range ch.subs {
			if sc.depth < 1 {
				return nil, 0, fmt.Errorf("%w: sub-channel %q.%q has depth %d",
					ErrInvalidShape, ch.Name, sc.Name, sc.depth)
			}
			cursor += sc.depth
		}
		// Parent range is the union of its sub-channel runs.
		if err := ix.add(ch.Name, Range{Lo: lo, Hi: cursor}); err != nil {
			return nil, 0, err
		}
		sub := lo
		for _, sc := range ch.subs {
			r := Range{Lo: sub, Hi: sub + sc.depth}
			if err := ix.addSub(ch.Name, sc.Name, r); err != nil {
				return nil, 0, err
			}
			sub = r.Hi
		}
		ch.depth = cursor - lo
	}

	ix.freeze()
	return ix, cursor, nil
}
