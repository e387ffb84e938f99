package config

import (
	"fmt"

	"github.com/pthm-cable/reef/substrate"
)

// Build constructs an unallocated substrate from the loaded configuration,
// registering channels in declaration order. The caller allocates.
func Build(cfg *Config) (*substrate.Substrate, error) {
	elem, err := parseElemType(cfg.Grid.ElemType)
	if err != nil {
		return nil, err
	}

	s, err := substrate.New(cfg.Grid.Width, cfg.Grid.Height, elem)
	if err != nil {
		return nil, err
	}
	if cfg.Grid.ReservedDepth > 0 {
		if err := s.ReserveDepth(cfg.Grid.ReservedDepth); err != nil {
			return nil, err
		}
	}

	decls := make([]substrate.Decl, 0, len(cfg.Channels))
	for _, decl := range cfg.Channels {
		spec, err := channelSpec(decl, elem)
		if err != nil {
			return nil, err
		}
		decls = append(decls, substrate.Decl{Name: decl.Name, Spec: spec})
	}
	if err := s.RegisterAll(decls); err != nil {
		return nil, err
	}
	return s, nil
}

func channelSpec(decl ChannelDecl, gridElem substrate.ElemType) (substrate.ChannelSpec, error) {
	elem, err := declElemType(decl, gridElem)
	if err != nil {
		return substrate.ChannelSpec{}, err
	}
	bounds, err := parseBounds(decl)
	if err != nil {
		return substrate.ChannelSpec{}, err
	}
	spec := substrate.ChannelSpec{
		Type:   elem,
		Depth:  decl.Depth,
		Bounds: bounds,
	}
	for _, sub := range decl.Subs {
		if len(sub.Subs) > 0 {
			return substrate.ChannelSpec{}, fmt.Errorf(
				"channel %q: sub-channel %q nests further; nesting stops at one level",
				decl.Name, sub.Name)
		}
		subElem, err := declElemType(sub, elem)
		if err != nil {
			return substrate.ChannelSpec{}, fmt.Errorf("channel %q: %w", decl.Name, err)
		}
		subBounds, err := parseBounds(sub)
		if err != nil {
			return substrate.ChannelSpec{}, fmt.Errorf("channel %q: %w", decl.Name, err)
		}
		spec.Subs = append(spec.Subs, substrate.SubSpec{
			Name:   sub.Name,
			Type:   subElem,
			Depth:  sub.Depth,
			Bounds: subBounds,
		})
	}
	return spec, nil
}

func declElemType(decl ChannelDecl, fallback substrate.ElemType) (substrate.ElemType, error) {
	if decl.ElemType == "" {
		return fallback, nil
	}
	return parseElemType(decl.ElemType)
}

func parseElemType(name string) (substrate.ElemType, error) {
	switch name {
	case "", "float32":
		return substrate.Float32, nil
	case "int32":
		return substrate.Int32, nil
	}
	return substrate.Float32, fmt.Errorf("unknown elem_type %q", name)
}

func parseBounds(decl ChannelDecl) (*substrate.Bounds, error) {
	switch len(decl.Bounds) {
	case 0:
		return nil, nil
	case 2:
		return &substrate.Bounds{
			Min: float32(decl.Bounds[0]),
			Max: float32(decl.Bounds[1]),
		}, nil
	}
	return nil, fmt.Errorf("channel %q: bounds must be [min, max], got %v", decl.Name, decl.Bounds)
}
