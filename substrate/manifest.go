package substrate

import "fmt"

// ChannelManifest describes one channel's descriptor and assigned depth
// range for external serializers.
type ChannelManifest struct {
	Name   string            `json:"name"`
	Type   string            `json:"type"`
	Bounds [2]float32        `json:"bounds"`
	Range  [2]int            `json:"range"`
	Subs   []ChannelManifest `json:"subchannels,omitempty"`
	Meta   map[string]any    `json:"meta,omitempty"`
}

// Manifest is the persisted-state boundary: everything an external
// serializer needs to snapshot and restore the layout plus buffer. The file
// encoding itself is up to the serializer.
type Manifest struct {
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	Elem          string            `json:"elem_type"`
	ReservedDepth int               `json:"reserved_depth"`
	TotalDepth    int               `json:"total_depth"`
	Channels      []ChannelManifest `json:"channels"`
}

// Manifest returns the layout manifest. Fails with ErrNotAllocated before
// allocation, when no ranges have been assigned yet.
func (s *Substrate) Manifest() (Manifest, error) {
	if s.mem == nil {
		return Manifest{}, fmt.Errorf("%w: no layout to describe", ErrNotAllocated)
	}
	m := Manifest{
		Width:         s.w,
		Height:        s.h,
		Elem:          s.elem.String(),
		ReservedDepth: s.reserved,
		TotalDepth:    s.totalDepth,
	}
	for _, ch := range s.channels {
		m.Channels = append(m.Channels, channelManifest(ch))
	}
	return m, nil
}

func channelManifest(ch *Channel) ChannelManifest {
	cm := ChannelManifest{
		Name:   ch.Name,
		Type:   ch.Type.String(),
		Bounds: [2]float32{ch.Bounds.Min, ch.Bounds.Max},
		Range:  [2]int{ch.slice.Lo, ch.slice.Hi},
		Meta:   ch.Meta,
	}
	for _, sc := range ch.subs {
		cm.Subs = append(cm.Subs, channelManifest(sc))
	}
	return cm
}
