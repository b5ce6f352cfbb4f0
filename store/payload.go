package store

import (
	"fmt"
	"math"

	"github.com/asterope/bkgfit/endian"
	"github.com/asterope/bkgfit/errs"
)

// Coefficient vectors of different lengths are stored in a fixed-stride
// table padded with NaN; the fitters never produce NaN coefficients, so
// trailing NaNs can be stripped unambiguously on read.

// encodePayload builds the uncompressed payload and records the section
// offsets and counts in the header.
func encodePayload(h *Header, state *State, engine endian.EndianEngine) []byte {
	channels := len(state.Coefficients)

	stride := 0
	for _, coeffs := range state.Coefficients {
		stride = max(stride, len(coeffs))
	}

	var buf []byte

	// Coefficient table.
	h.CoeffOffset = 0
	buf = engine.AppendUint32(buf, uint32(stride))
	for _, coeffs := range state.Coefficients {
		for j := range stride {
			v := math.NaN()
			if j < len(coeffs) {
				v = coeffs[j]
			}
			buf = engine.AppendUint64(buf, math.Float64bits(v))
		}
	}

	// Covariance table: one stride x stride row-major block per channel.
	h.CovOffset = uint32(len(buf))
	buf = engine.AppendUint32(buf, uint32(stride))
	for ch, cov := range state.Covariances {
		n := len(state.Coefficients[ch])
		for r := range stride {
			for c := range stride {
				v := math.NaN()
				if r < n && c < n {
					v = cov[r*n+c]
				}
				buf = engine.AppendUint64(buf, math.Float64bits(v))
			}
		}
	}

	// Metadata: degree, mode flag, method string, interval pairs.
	h.MetaOffset = uint32(len(buf))
	buf = append(buf, byte(state.Degree))
	if state.Unbinned {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = engine.AppendUint16(buf, uint16(len(state.Method)))
	buf = append(buf, state.Method...)
	for i := range state.IntervalStarts {
		buf = engine.AppendUint64(buf, math.Float64bits(state.IntervalStarts[i]))
		buf = engine.AppendUint64(buf, math.Float64bits(state.IntervalStops[i]))
	}

	h.ChannelCount = uint32(channels)
	h.IntervalCount = uint32(len(state.IntervalStarts))
	h.PayloadSize = uint32(len(buf))

	return buf
}

// decodePayload reconstructs a State from the uncompressed payload.
func decodePayload(h *Header, payload []byte) (*State, error) {
	engine := h.Flag.EndianEngine()
	channels := int(h.ChannelCount)

	state := &State{
		Mode:         h.Flag.Mode,
		Unbinned:     false,
		Coefficients: make([][]float64, channels),
		Covariances:  make([][]float64, channels),
	}

	// Coefficient table.
	off := int(h.CoeffOffset)
	if off+4 > len(payload) {
		return nil, errs.ErrShortPayload
	}
	stride := int(engine.Uint32(payload[off : off+4]))
	off += 4

	lengths := make([]int, channels)
	for ch := range channels {
		if off+8*stride > len(payload) {
			return nil, errs.ErrShortPayload
		}

		coeffs := make([]float64, 0, stride)
		for j := range stride {
			v := math.Float64frombits(engine.Uint64(payload[off+8*j : off+8*j+8]))
			coeffs = append(coeffs, v)
		}
		off += 8 * stride

		// Strip the trailing NaN fill.
		n := stride
		for n > 0 && math.IsNaN(coeffs[n-1]) {
			n--
		}
		if n == 0 {
			return nil, fmt.Errorf("channel %d: no coefficients stored", ch)
		}

		state.Coefficients[ch] = coeffs[:n:n]
		lengths[ch] = n
	}

	// Covariance table.
	off = int(h.CovOffset)
	if off+4 > len(payload) {
		return nil, errs.ErrShortPayload
	}
	covStride := int(engine.Uint32(payload[off : off+4]))
	off += 4

	if covStride != stride {
		return nil, fmt.Errorf("covariance stride %d does not match coefficient stride %d",
			covStride, stride)
	}

	for ch := range channels {
		if off+8*stride*stride > len(payload) {
			return nil, errs.ErrShortPayload
		}

		n := lengths[ch]
		cov := make([]float64, n*n)
		for r := range n {
			for c := range n {
				idx := off + 8*(r*stride+c)
				cov[r*n+c] = math.Float64frombits(engine.Uint64(payload[idx : idx+8]))
			}
		}
		off += 8 * stride * stride

		state.Covariances[ch] = cov
	}

	// Metadata.
	off = int(h.MetaOffset)
	if off+4 > len(payload) {
		return nil, errs.ErrShortPayload
	}
	state.Degree = int(payload[off])
	state.Unbinned = payload[off+1] != 0
	methodLen := int(engine.Uint16(payload[off+2 : off+4]))
	off += 4

	if off+methodLen > len(payload) {
		return nil, errs.ErrShortPayload
	}
	state.Method = string(payload[off : off+methodLen])
	off += methodLen

	intervals := int(h.IntervalCount)
	if off+16*intervals > len(payload) {
		return nil, errs.ErrShortPayload
	}
	state.IntervalStarts = make([]float64, intervals)
	state.IntervalStops = make([]float64, intervals)
	for i := range intervals {
		state.IntervalStarts[i] = math.Float64frombits(engine.Uint64(payload[off : off+8]))
		state.IntervalStops[i] = math.Float64frombits(engine.Uint64(payload[off+8 : off+16]))
		off += 16
	}

	return state, nil
}
