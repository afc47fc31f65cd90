// Package splitter implements the channel splitter (spec §4.2): it
// compiles a plugin's channel map and a caller's group requests into
// a minimal list of contiguous input->output slice descriptors.
package splitter

import "github.com/mmlabs-mindmaze/eegdev-go/plugin"

// inOffsets precomputes, for each channel in chmap, the cumulative
// byte offset of its input sample within one input sample.
func inOffsets(chmap []plugin.ChInfo) []int {
	offs := make([]int, len(chmap))
	offset := 0
	for i, ch := range chmap {
		offs[i] = offset
		offset += ch.Signal.DataType.Size()
	}
	return offs
}

// indexOfNth returns the index in chmap of the n-th (0-based)
// channel whose sensor type equals stype, or -1 if there is no such
// channel.
func indexOfNth(chmap []plugin.ChInfo, stype, n int) int {
	count := 0
	for i, ch := range chmap {
		if ch.SType == stype {
			if count == n {
				return i
			}
			count++
		}
	}
	return -1
}

// Split compiles grp against chmap, following spec §4.2: find the
// group's starting channel, accumulate runs of channels that share
// sensor type and input data type, and emit one SelectedChannels per
// run until grp.NumCh channels have been consumed.
func Split(chmap []plugin.ChInfo, grp plugin.GrpConf) ([]plugin.SelectedChannels, error) {
	if grp.NumCh == 0 {
		return nil, nil
	}

	j := indexOfNth(chmap, grp.SensorType, grp.Index)
	if j < 0 {
		return nil, plugin.ErrInvalidArgument
	}

	offs := inOffsets(chmap)
	outSize := grp.DataType.Size()
	if outSize == 0 {
		return nil, plugin.ErrInvalidArgument
	}

	var out []plugin.SelectedChannels
	consumed := 0
	arrOffset := grp.ArrOffset

	for consumed < grp.NumCh {
		if j < 0 || j >= len(chmap) || chmap[j].SType != grp.SensorType {
			// Channel map doesn't contain enough channels of this
			// sensor type to satisfy the request.
			return nil, plugin.ErrInvalidArgument
		}

		runStart := j
		ti := chmap[j].Signal.DataType
		runLen := 0
		for consumed < grp.NumCh && j < len(chmap) &&
			chmap[j].SType == grp.SensorType &&
			chmap[j].Signal.DataType == ti {
			runLen++
			consumed++
			j++
		}

		sig := chmap[runStart].Signal
		out = append(out, plugin.SelectedChannels{
			InOffset:   offs[runStart],
			InLen:      runLen * ti.Size(),
			TypeIn:     ti,
			TypeOut:    grp.DataType,
			Scale:      plugin.ValueOf(grp.DataType, sig.Scale),
			Scaled:     sig.Scaled,
			ArrayIndex: grp.ArrayIndex,
			ArrOffset:  arrOffset,
		})
		arrOffset += runLen * outSize

		if consumed < grp.NumCh {
			// Skip forward to the next channel of this sensor type;
			// the run above stopped at a non-matching channel or a
			// data-type change mid-type.
			for j < len(chmap) && chmap[j].SType != grp.SensorType {
				j++
			}
		}
	}

	return out, nil
}

// SplitAll compiles every group in grps, in order, concatenating
// their SelectedChannels.
func SplitAll(chmap []plugin.ChInfo, grps []plugin.GrpConf) ([]plugin.SelectedChannels, error) {
	var all []plugin.SelectedChannels
	for _, g := range grps {
		sel, err := Split(chmap, g)
		if err != nil {
			return nil, err
		}
		all = append(all, sel...)
	}
	return all, nil
}
