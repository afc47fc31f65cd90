// Package engine implements the device-agnostic acquisition engine:
// the ring buffer, the acquisition state machine, the ingest
// pipeline, and the CoreInterface a plugin drives (spec §4.3-§4.7).
//
// Device is deliberately the only thing in this package that knows
// about bytes, locks, and cast functions; everything above it (the
// root eegdev package) only calls typed, blocking-or-not methods.
package engine

import (
	"fmt"
	"sync"

	"github.com/mmlabs-mindmaze/eegdev-go/internal/cast"
	"github.com/mmlabs-mindmaze/eegdev-go/internal/options"
	"github.com/mmlabs-mindmaze/eegdev-go/internal/sensortype"
	"github.com/mmlabs-mindmaze/eegdev-go/internal/splitter"
	"github.com/mmlabs-mindmaze/eegdev-go/plugin"
)

// Device is the core's per-device state. It implements
// plugin.CoreInterface so the plugin it drives can be handed a
// *plugin.DeviceModule pointing straight back at it.
type Device struct {
	descriptor *plugin.Descriptor
	module     *plugin.DeviceModule
	lookupConf func(name string) (string, bool)

	// Capability set, fixed for the device's lifetime once Open has
	// run (guarded by apiMu, since only configuration calls touch it
	// after Open).
	apiMu          sync.Mutex
	chmap          []plugin.ChInfo
	capFlags       plugin.NocpFlags
	samplingFreq   float64
	deviceType     string
	deviceID       string
	providedStypes []int
	typeNch        map[int]int

	narr       int
	strides    []int
	ibgrp      []inputBufferGroup
	arrConf    []arrayConfig
	buffSamlen int
	inSamlen   int

	// synclock-guarded state: shared between the single producer
	// and single consumer, plus configuration calls that only peek
	// at `acquiring`.
	mu        sync.Mutex
	cond      *sync.Cond
	buffer    []byte
	buffNS    int
	ind       int
	lastRead  int
	nsWritten int
	nsRead    int
	nReadWait int
	acquiring bool
	acqOrder  order
	err       error
	// carry holds the bytes accumulated toward the next whole input
	// sample. Its length is the running in-sample byte offset and is
	// tracked on every UpdateRingbuffer call, acquiring or not, so a
	// pending start order knows how many bytes remain to reach the
	// next sample boundary (spec's "Start alignment" scenario).
	carry []byte
}

// New creates a Device around descriptor. lookupConf is the opaque
// configuration collaborator callback exposed to the plugin via
// GetConfMapping; it may be nil.
func New(descriptor *plugin.Descriptor, lookupConf func(string) (string, bool)) *Device {
	d := &Device{
		descriptor: descriptor,
		lookupConf: lookupConf,
		typeNch:    make(map[int]int),
	}
	d.cond = sync.NewCond(&d.mu)
	d.module = &plugin.DeviceModule{Core: d}
	return d
}

// Module returns the DeviceModule to hand to the plugin's Open call.
func (d *Device) Module() *plugin.DeviceModule { return d.module }

// --- plugin.CoreInterface -------------------------------------------------

func (d *Device) AllocInputGroups(n int) []plugin.SelectedChannels {
	return make([]plugin.SelectedChannels, n)
}

func (d *Device) ReportError(err error) {
	d.mu.Lock()
	if d.err == nil {
		d.err = err
	}
	if d.nReadWait != 0 {
		d.cond.Signal()
	}
	d.mu.Unlock()
}

func (d *Device) GetStype(name string) int {
	return sensortype.TypeOf(name)
}

func (d *Device) SetInputSamlen(n int) {
	d.apiMu.Lock()
	d.inSamlen = n
	d.apiMu.Unlock()
}

func (d *Device) GetConfMapping(name string) (string, bool) {
	if d.lookupConf == nil {
		return "", false
	}
	return d.lookupConf(name)
}

func (d *Device) Getopt(name, defValue string, optv []string) string {
	return options.Getopt(name, defValue, optv)
}

// SetCap normalizes NOCP flags, expands the plugin's block mappings
// into a flat channel map, and derives the provided-sensor-type and
// per-type channel count summaries (spec §4.7, §3).
func (d *Device) SetCap(cap plugin.SystemCap) error {
	if len(cap.Mappings) == 0 {
		return fmt.Errorf("%w: no channel mappings", plugin.ErrInvalidArgument)
	}

	flags := normalizeNocpFlags(cap.Flags, cap.Mappings)
	chmap := expandMappings(cap.Mappings, flags)
	if len(chmap) == 0 {
		return fmt.Errorf("%w: empty channel map", plugin.ErrInvalidArgument)
	}
	for i, ch := range chmap {
		if ch.Signal == nil {
			return fmt.Errorf("%w: channel %d has no signal info", plugin.ErrInvalidArgument, i)
		}
	}

	d.apiMu.Lock()
	defer d.apiMu.Unlock()
	d.capFlags = flags
	d.samplingFreq = cap.SamplingFreq
	d.deviceType = cap.DeviceType
	d.deviceID = cap.DeviceID
	d.chmap = chmap
	d.providedStypes, d.typeNch = summarizeTypes(chmap)
	return nil
}

// normalizeNocpFlags applies the invariants of spec §3: NOCP_CHMAP
// is ignored (cleared) when there is more than one block, any
// skipped channels, or any block default-info; and separately,
// NOCP_CHMAP implies NOCP_CHLABEL, so it is also cleared if
// NOCP_CHLABEL is not asserted. NOCP_DEVTYPE and NOCP_DEVID carry no
// such dependency (resolved Open Question, see SPEC_FULL.md).
func normalizeNocpFlags(flags plugin.NocpFlags, mappings []plugin.BlockMapping) plugin.NocpFlags {
	if flags&plugin.NocpChmap != 0 {
		if len(mappings) > 1 || mappings[0].NumSkipped > 0 || mappings[0].DefaultInfo != nil {
			flags &^= plugin.NocpChmap
		}
	}
	if flags&plugin.NocpChLabel == 0 {
		flags &^= plugin.NocpChmap
	}
	return flags
}

// expandMappings builds the flat channel map. When NOCP_CHMAP holds
// (which by construction means exactly one mapping, no skipped
// channels, and no default info) the plugin's own channel slice is
// reused as-is instead of being copied.
func expandMappings(mappings []plugin.BlockMapping, flags plugin.NocpFlags) []plugin.ChInfo {
	if flags&plugin.NocpChmap != 0 {
		return mappings[0].Channels
	}

	var chmap []plugin.ChInfo
	for _, m := range mappings {
		for _, ch := range m.Channels {
			if ch.Signal == nil {
				ch.Signal = m.DefaultInfo
			}
			chmap = append(chmap, ch)
		}
		for i := 0; i < m.NumSkipped; i++ {
			chmap = append(chmap, plugin.ChInfo{SType: m.SkippedSType, Signal: m.DefaultInfo})
		}
	}
	return chmap
}

func summarizeTypes(chmap []plugin.ChInfo) ([]int, map[int]int) {
	typeNch := make(map[int]int)
	var order []int
	for _, ch := range chmap {
		if _, seen := typeNch[ch.SType]; !seen {
			order = append(order, ch.SType)
		}
		typeNch[ch.SType]++
	}
	return order, typeNch
}

// --- introspection (spec §4.6) --------------------------------------------

func (d *Device) SamplingFreq() float64 {
	d.apiMu.Lock()
	defer d.apiMu.Unlock()
	return d.samplingFreq
}

func (d *Device) ProvidedStypes() []int {
	d.apiMu.Lock()
	defer d.apiMu.Unlock()
	return append([]int(nil), d.providedStypes...)
}

func (d *Device) DeviceType() string {
	d.apiMu.Lock()
	defer d.apiMu.Unlock()
	return d.deviceType
}

func (d *Device) DeviceID() string {
	d.apiMu.Lock()
	defer d.apiMu.Unlock()
	return d.deviceID
}

func (d *Device) NumCh(stype int) int {
	d.apiMu.Lock()
	defer d.apiMu.Unlock()
	return d.typeNch[stype]
}

// ChInfo returns the fully resolved channel info for the index-th
// channel of sensor type stype: the default label and a copy of its
// signal info, further customized by the plugin's FillChInfo hook if
// it has one (spec §4.6, §4.7's "channel-info default filler").
func (d *Device) ChInfo(stype, index int) (plugin.ChInfo, error) {
	d.apiMu.Lock()
	defer d.apiMu.Unlock()

	if index < 0 || index >= d.typeNch[stype] {
		return plugin.ChInfo{}, plugin.ErrInvalidArgument
	}

	abs := indexOfNth(d.chmap, stype, index)
	src := d.chmap[abs]

	sig := *src.Signal
	info := plugin.ChInfo{SType: stype, Signal: &sig, Label: src.Label}
	if info.Label == "" {
		name, _ := sensortype.Name(stype)
		info.Label = fmt.Sprintf("%s:%d", name, index)
	}

	if d.descriptor.FillChInfo != nil {
		d.descriptor.FillChInfo(d.module, stype, index, &info, &sig)
	}

	return info, nil
}

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

// --- setup (spec §4.6's acq_setup) -----------------------------------------

// AcqSetup validates groups, compiles the channel splitter (or the
// plugin's own SetChannelGroups), and (re)allocates the ring buffer.
// Requires the device to be idle; may be called again later, even
// after a prior start/stop cycle (resolved Open Question).
func (d *Device) AcqSetup(narr int, strides []int, groups []plugin.GrpConf) error {
	d.apiMu.Lock()
	defer d.apiMu.Unlock()

	if d.isAcquiring() {
		return plugin.ErrBadState
	}

	if err := d.validateGroups(groups); err != nil {
		return err
	}

	var sel []plugin.SelectedChannels
	var err error
	if d.descriptor.SetChannelGroups != nil {
		sel, err = d.descriptor.SetChannelGroups(d.module, groups)
	} else {
		sel, err = splitter.SplitAll(d.chmap, groups)
	}
	if err != nil {
		return err
	}

	ibgrp, arrConf, samlen := compileMapping(sel)

	d.narr = narr
	d.strides = append([]int(nil), strides...)
	d.ibgrp = ibgrp
	d.arrConf = arrConf
	d.buffSamlen = samlen

	d.allocateBuffer()
	return nil
}

func (d *Device) isAcquiring() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acquiring
}

func (d *Device) validateGroups(groups []plugin.GrpConf) error {
	for _, g := range groups {
		if g.NumCh == 0 {
			continue
		}
		nch, ok := d.typeNch[g.SensorType]
		if !ok || g.Index+g.NumCh > nch || !g.DataType.Valid() {
			return plugin.ErrInvalidArgument
		}
	}
	return nil
}

// compileMapping is setup_ringbuffer_mapping + optimize_inbufgrp from
// the original: for each selected channel, set the
// (input->ringbuffer) cast instruction and the (ringbuffer->array)
// copy instruction, then coalesce adjacent compatible cast
// instructions (spec §4.6, §3's "Input-buffer group").
func compileMapping(sel []plugin.SelectedChannels) ([]inputBufferGroup, []arrayConfig, int) {
	ibgrp := make([]inputBufferGroup, len(sel))
	arrConf := make([]arrayConfig, len(sel))
	offset := 0

	for i, sc := range sel {
		isiz, bsiz := sc.TypeIn.Size(), sc.TypeOut.Size()
		ibgrp[i] = inputBufferGroup{
			inOffset:   sc.InOffset,
			inLen:      sc.InLen,
			buffOffset: offset,
			inTsize:    isiz,
			buffTsize:  bsiz,
			scale:      sc.Scale,
			castFn:     cast.Lookup(sc.TypeIn, sc.TypeOut, sc.Scaled),
			castKey:    castKey{sc.TypeIn, sc.TypeOut, sc.Scaled},
		}
		length := bsiz * sc.InLen / isiz
		arrConf[i] = arrayConfig{
			length:     length,
			arrayIndex: sc.ArrayIndex,
			arrOffset:  sc.ArrOffset,
			buffOffset: offset,
		}
		offset += length
	}

	return optimizeInbufgrp(ibgrp), arrConf, offset
}

func optimizeInbufgrp(ibgrp []inputBufferGroup) []inputBufferGroup {
	for i := 0; i < len(ibgrp); i++ {
		for j := i + 1; j < len(ibgrp); j++ {
			a, b := ibgrp[i], ibgrp[j]
			if a.inTsize == a.buffTsize &&
				b.inOffset == a.inOffset+a.inLen &&
				b.buffOffset == a.buffOffset+a.inLen &&
				b.scale == a.scale &&
				b.castKey == a.castKey {
				ibgrp[i].inLen += b.inLen
				ibgrp = append(ibgrp[:j], ibgrp[j+1:]...)
				j--
			}
		}
	}
	return ibgrp
}

func (d *Device) allocateBuffer() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffNS = int(BufferSeconds * d.samplingFreq)
	d.buffer = make([]byte, d.buffNS*d.buffSamlen)
	d.ind, d.lastRead = 0, 0
	d.nsWritten, d.nsRead = 0, 0
	d.carry = nil
}

// --- ingest pipeline (spec §4.3, §4.4) -------------------------------------

// UpdateRingbuffer is the producer entry point: a plugin calls it from
// its own acquisition thread with however many raw bytes it has on
// hand, with no obligation to align on a sample boundary. It
// reassembles whole input samples across calls, casts each into the
// ring buffer, and wakes a consumer blocked in GetData once enough
// samples are available.
//
// The running in-sample byte offset (len(d.carry)) is tracked on
// every call, whether or not the device is acquiring, mirroring
// core.c's unconditional `dev->in_offset = (length + dev->in_offset)
// % dev->in_samlen` (spec §4.5 step 2). This is what lets a pending
// start order realign to the next sample boundary instead of treating
// the byte right after Start as offset zero.
//
// Start flips `acquiring` true immediately at the call site; Stop only
// schedules a pending stop order there. Both orders are only realized
// here. A start order fires as soon as enough bytes have arrived to
// complete (and discard) whatever partial sample was pending before
// Start was called — the data before that boundary belongs to the
// pre-start period and is never delivered, exactly as spec's "Start
// alignment" scenario requires; if not enough bytes have arrived yet,
// the order stays pending for a later call. A stop order flips
// `acquiring` false outright. This keeps a plugin's acquisition thread
// from ever waiting on a consumer-side lock to learn it should
// start or stop.
func (d *Device) UpdateRingbuffer(in []byte) error {
	d.apiMu.Lock()
	inSamlen := d.inSamlen
	ibgrp := d.ibgrp
	buffSamlen := d.buffSamlen
	d.apiMu.Unlock()

	if inSamlen == 0 {
		return fmt.Errorf("%w: input sample length not set", plugin.ErrBadState)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.carry == nil {
		d.carry = make([]byte, 0, inSamlen)
	}

	switch d.acqOrder {
	case orderStart:
		rest := (inSamlen - len(d.carry)) % inSamlen
		if rest <= len(in) {
			d.acqOrder = orderNone
			d.ind, d.lastRead = 0, 0
			d.nsWritten, d.nsRead = 0, 0
			in = in[rest:]
			d.carry = d.carry[:0]
		}
		// Otherwise the pending partial sample still isn't complete;
		// leave the order pending and fall through to accumulate
		// these bytes toward it below.
	case orderStop:
		d.acqOrder = orderNone
		d.acquiring = false
		if d.nReadWait != 0 {
			d.cond.Signal()
		}
	}

	acquiring := d.acquiring && d.buffNS != 0

	for len(in) > 0 {
		need := inSamlen - len(d.carry)
		if need > len(in) {
			d.carry = append(d.carry, in...)
			return nil
		}

		d.carry = append(d.carry, in[:need]...)
		in = in[need:]

		if acquiring {
			if err := d.pushSample(d.carry, ibgrp, buffSamlen); err != nil {
				d.carry = d.carry[:0]
				return err
			}
		}
		d.carry = d.carry[:0]
	}
	return nil
}

// pushSample casts one fully reassembled input sample into the ring
// buffer slot at d.ind, or latches ErrNoSpace if the ring buffer has
// no free slot (spec §4.3's overrun behavior).
func (d *Device) pushSample(sample []byte, ibgrp []inputBufferGroup, buffSamlen int) error {
	if d.nsWritten-d.nsRead >= d.buffNS {
		if d.err == nil {
			d.err = plugin.ErrNoSpace
		}
		if d.nReadWait != 0 {
			d.cond.Signal()
		}
		return d.err
	}

	dst := d.buffer[d.ind*buffSamlen : (d.ind+1)*buffSamlen]
	for _, g := range ibgrp {
		outLen := g.buffTsize * (g.inLen / g.inTsize)
		g.castFn(dst[g.buffOffset:g.buffOffset+outLen], sample[g.inOffset:g.inOffset+g.inLen], g.scale)
	}

	d.ind = (d.ind + 1) % d.buffNS
	d.nsWritten++
	if d.nReadWait != 0 && d.nReadWait+d.nsRead <= d.nsWritten {
		d.cond.Signal()
	}
	return nil
}

// --- consumer API (spec §4.4, §4.6) ----------------------------------------

// GetAvailable returns the number of samples currently buffered and
// not yet read.
func (d *Device) GetAvailable() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ns := d.nsWritten - d.nsRead
	if ns == 0 && d.err != nil {
		return 0, d.err
	}
	return ns, nil
}

// GetData blocks until ns samples are available, the device stops
// acquiring, or an error is reported, then copies up to ns samples
// into arrays (one slice per array index, each strided per AcqSetup's
// strides) and returns the number of samples actually copied.
//
// ns == 0 is a legal no-op that returns (0, nil) immediately.
func (d *Device) GetData(ns int, arrays [][]byte) (int, error) {
	if ns == 0 {
		return 0, nil
	}
	if len(arrays) != d.narr {
		return 0, plugin.ErrInvalidArgument
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.nReadWait = ns
	for d.nsWritten-d.nsRead < ns && d.err == nil && d.acquiring {
		d.cond.Wait()
	}
	d.nReadWait = 0

	avail := d.nsWritten - d.nsRead
	n := ns
	if avail < n {
		n = avail
	}

	for i := 0; i < n; i++ {
		d.copySample(d.lastRead, arrays, i)
		d.lastRead = (d.lastRead + 1) % d.buffNS
	}
	d.nsRead += n

	switch {
	case n == ns:
		return n, nil
	case d.err != nil:
		return n, d.err
	case !d.acquiring:
		return n, plugin.ErrBadState
	default:
		return n, nil
	}
}

func (d *Device) copySample(ringIdx int, arrays [][]byte, sampleIdx int) {
	src := d.buffer[ringIdx*d.buffSamlen : (ringIdx+1)*d.buffSamlen]
	for _, a := range d.arrConf {
		dst := arrays[a.arrayIndex]
		off := sampleIdx*d.strides[a.arrayIndex] + a.arrOffset
		copy(dst[off:off+a.length], src[a.buffOffset:a.buffOffset+a.length])
	}
}

// --- acquisition state machine (spec §4.4) ---------------------------------

// Start arms the device for acquisition. It calls the plugin's
// StartAcq hook synchronously and then sets "acquiring" at once; the
// buffer reset and the realignment to the next input-sample boundary
// that it schedules only take effect at the next UpdateRingbuffer
// call.
func (d *Device) Start() error {
	d.mu.Lock()
	if d.acquiring {
		d.mu.Unlock()
		return plugin.ErrBadState
	}
	d.mu.Unlock()

	if d.descriptor.StartAcq != nil {
		if err := d.descriptor.StartAcq(d.module); err != nil {
			return err
		}
	}

	d.mu.Lock()
	d.err = nil
	d.acqOrder = orderStart
	d.acquiring = true
	d.mu.Unlock()
	return nil
}

// Stop schedules the device to stop accepting samples at the next
// UpdateRingbuffer call, then calls the plugin's StopAcq hook. A
// consumer blocked in GetData is released once that next call (if
// any) lands and clears `acquiring`.
func (d *Device) Stop() error {
	d.mu.Lock()
	if !d.acquiring {
		d.mu.Unlock()
		return plugin.ErrBadState
	}
	d.acqOrder = orderStop
	d.mu.Unlock()

	if d.descriptor.StopAcq != nil {
		return d.descriptor.StopAcq(d.module)
	}
	return nil
}

// Close stops acquisition if needed and releases the device through
// the plugin's Close hook.
func (d *Device) Close() error {
	d.mu.Lock()
	acquiring := d.acquiring
	d.mu.Unlock()

	if acquiring {
		if err := d.Stop(); err != nil {
			return err
		}
	}

	if d.descriptor.Close != nil {
		return d.descriptor.Close(d.module)
	}
	return nil
}
