// Package regalloc implements the native back end's linear-scan register
// allocator (spec.md §4.4): live-interval construction, a start-sorted
// scan with latest-end eviction on pressure, and fixed-point spill
// materialization.
//
// Grounded on y1yang0-falcon/src/compile/codegen/lsra.go's Interval/Range/
// UsePoint shape, simplified from falcon's interval-splitting machinery
// (children/sibling chains) since spec.md §4.4 step 4 only ever evicts a
// *whole* interval to the spilled state on pressure -- there is no partial
// split, so Interval here stays a single contiguous range.
package regalloc

import (
	"sort"

	"github.com/jainl28patel/xcc/internal/ir"
)

// RegisterFile describes one physical register class (integer or
// floating-point), split per spec.md §4.4 into "separately for integer and
// floating-point register files."
type RegisterFile struct {
	NumScratch int // low range reserved for spill fix-up temporaries (spec.md §4.4 step 4)
	NumRegs    int // total physical registers, scratch range included
	ArgRegs    []int // ABI argument-register indices, in parameter order
}

// SystemVInt is x86-64 System V's integer argument/callee-save register
// file, grounded on spec.md §4.4/§6's native-backend ABI description:
// rdi,rsi,rdx,rcx,r8,r9 for the first six integer args, with two low
// indices reserved as scratch for spill fix-ups.
var SystemVInt = RegisterFile{NumScratch: 2, NumRegs: 14, ArgRegs: []int{2, 3, 4, 5, 6, 7}}

// SystemVFloat is the xmm0-xmm7 float argument file.
var SystemVFloat = RegisterFile{NumScratch: 2, NumRegs: 16, ArgRegs: []int{2, 3, 4, 5, 6, 7, 8, 9}}

// Interval is one vreg's live range (spec.md §3): {vreg-id, start, end,
// assigned-physical, state, occupancy bitset}.
type Interval struct {
	VReg  int
	Start int
	End   int

	State State

	PhysReg int // -1 until assigned

	// Occupied is the bitset of physical registers this interval's vreg is
	// pinned away from at some point (argument-register or call-clobber
	// constraints), recorded as a simple bool slice sized NumRegs.
	Occupied []bool

	// Preferred is the parameter's ABI register, or -1 when this vreg is
	// not a register-passed parameter (spec.md §4.4 step 4: "preferred
	// physical is the parameter's ABI register if this vreg is a register
	// parameter and that register is not occupied").
	Preferred int
}

// State discriminates an interval's allocation outcome.
type State int

const (
	Normal State = iota
	Const
	Spilled
)

// Result is the allocator's per-function output: every interval plus the
// function's final spill-adjusted frame size.
type Result struct {
	IntIntervals   []*Interval
	FloatIntervals []*Interval
	FrameSize      int
}

// Allocate runs linear-scan register allocation over fn, iterating the
// build-intervals/scan/spill-materialize loop to a fixed point (spec.md
// §4.4 step 5: "the algorithm iterates ... until no further insertions
// occur").
func Allocate(fn *ir.Function, intFile, floatFile RegisterFile) *Result {
	frame := 0
	var intIntervals, floatIntervals []*Interval
	for iter := 0; iter < 8; iter++ {
		intIntervals, floatIntervals = buildIntervals(fn, intFile, floatFile)
		scan(intIntervals, intFile)
		scan(floatIntervals, floatFile)

		inserted, added := materializeSpills(fn, intIntervals, floatIntervals)
		frame += added
		fn.FrameSize = frame
		if !inserted {
			break
		}
	}
	fn.FrameSize = frame
	writeBack(fn, intIntervals)
	writeBack(fn, floatIntervals)
	return &Result{IntIntervals: intIntervals, FloatIntervals: floatIntervals, FrameSize: frame}
}

// writeBack copies each interval's final allocation decision onto its
// VReg, which the emitter reads directly.
func writeBack(fn *ir.Function, intervals []*Interval) {
	for _, iv := range intervals {
		vr := fn.VRegs[iv.VReg]
		if iv.State == Spilled {
			vr.Spilled = true
			continue
		}
		vr.PhysReg = iv.PhysReg
	}
}

// buildIntervals computes one contiguous [start,end] live range per vreg
// from its first definition to its last use across the function's
// instruction timeline (spec.md §3 invariant: "a vreg's lifetime begins at
// its first definition-index and ends after its last use-index"),
// separated into the integer and floating-point classes.
func buildIntervals(fn *ir.Function, intFile, floatFile RegisterFile) (ints, floats []*Interval) {
	first := map[int]int{}
	last := map[int]int{}
	touch := func(id, pos int) {
		if id < 0 {
			return
		}
		if _, ok := first[id]; !ok {
			first[id] = pos
		}
		if pos > last[id] {
			last[id] = pos
		}
	}

	for _, bl := range fn.Blocks {
		for _, in := range bl.Insns {
			touch(in.Dst, in.ID)
			touch(in.A, in.ID)
			touch(in.B, in.ID)
		}
	}
	for _, vr := range fn.Params {
		if _, ok := first[vr]; !ok {
			first[vr] = 0
		}
	}

	for id, vr := range fn.VRegs {
		start, ok := first[id]
		if !ok {
			continue // unused vreg (e.g. a dead temporary), no interval needed
		}
		end := last[id]
		if end < start {
			end = start
		}
		iv := &Interval{VReg: id, Start: start, End: end, PhysReg: -1, Preferred: -1}
		if vr.IsConst {
			iv.State = Const
		}
		if vr.Param {
			file := intFile
			if vr.Flonum {
				file = floatFile
			}
			if vr.ParamIndex < len(file.ArgRegs) {
				iv.Preferred = file.ArgRegs[vr.ParamIndex]
			}
		}
		if vr.Flonum {
			floats = append(floats, iv)
		} else {
			ints = append(ints, iv)
		}
	}
	return ints, floats
}

// scan performs the linear-scan pass of spec.md §4.4 step 4: sort by
// start, expire from `active` anything whose end has passed, prefer the
// parameter's ABI register when possible, otherwise the lowest-numbered
// free non-scratch physical; on pressure the interval in active ∪
// {current} with the latest end is spilled.
func scan(intervals []*Interval, file RegisterFile) {
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].Start < intervals[j].Start })

	var active []*Interval
	occupied := make([]bool, file.NumRegs)

	expire := func(pos int) {
		kept := active[:0]
		for _, iv := range active {
			if iv.End <= pos {
				occupied[iv.PhysReg] = false
				continue
			}
			kept = append(kept, iv)
		}
		active = kept
	}

	for _, cur := range intervals {
		if cur.State == Const {
			continue // a constant vreg never occupies a physical register
		}
		expire(cur.Start)

		phys := pickRegister(cur, file, occupied)
		if phys >= 0 {
			cur.PhysReg = phys
			occupied[phys] = true
			active = append(active, cur)
			continue
		}

		// Pressure: evict the latest-ending interval among active ∪
		// {current}.
		victim := cur
		victimIdx := -1
		for i, iv := range active {
			if iv.End > victim.End {
				victim = iv
				victimIdx = i
			}
		}
		if victim == cur {
			cur.State = Spilled
			continue
		}
		victim.State = Spilled
		freed := victim.PhysReg
		occupied[freed] = false
		victim.PhysReg = -1
		active[victimIdx] = cur
		cur.PhysReg = freed
		occupied[freed] = true
	}
}

func pickRegister(iv *Interval, file RegisterFile, occupied []bool) int {
	if iv.Preferred >= 0 && !occupied[iv.Preferred] && !blockedFor(iv, iv.Preferred) {
		return iv.Preferred
	}
	// Scratch registers are reserved for spill fix-ups and are only chosen
	// under explicit parameter-register constraints (spec.md §4.4 step 4).
	start := file.NumScratch
	for r := start; r < file.NumRegs; r++ {
		if !occupied[r] && !blockedFor(iv, r) {
			return r
		}
	}
	return -1
}

func blockedFor(iv *Interval, r int) bool {
	return r < len(iv.Occupied) && iv.Occupied[r]
}

// materializeSpills allocates a frame slot for every newly-spilled vreg and
// inserts load-spilled/store-spilled IRs bracketing each use, routed
// through a freshly-minted no-spill temporary (spec.md §4.4 step 5).
// Returns whether any insertion occurred (driving the caller's fixed-point
// loop) and the additional frame bytes consumed.
func materializeSpills(fn *ir.Function, intIntervals, floatIntervals []*Interval) (bool, int) {
	spilled := map[int]bool{}
	added := 0
	for _, iv := range append(append([]*Interval{}, intIntervals...), floatIntervals...) {
		if iv.State != Spilled {
			continue
		}
		vr := fn.VRegs[iv.VReg]
		if vr.Spilled {
			continue // frame slot already assigned on a prior iteration
		}
		vr.Spilled = true
		vr.Frame = fn.FrameSize + added
		added += spillSlotSize(vr.Size)
		spilled[iv.VReg] = true
	}
	if len(spilled) == 0 {
		return false, 0
	}

	for _, bl := range fn.Blocks {
		var out []*ir.Instruction
		for _, in := range bl.Insns {
			if spilled[in.A] {
				tmp := freshTemp(fn, in.A)
				out = append(out, &ir.Instruction{Op: ir.OpLoadSpilled, Dst: tmp, A: in.A, B: -1})
				in.A = tmp
			}
			if spilled[in.B] {
				tmp := freshTemp(fn, in.B)
				out = append(out, &ir.Instruction{Op: ir.OpLoadSpilled, Dst: tmp, A: in.B, B: -1})
				in.B = tmp
			}
			origDst := in.Dst
			if spilled[origDst] {
				tmp := freshTemp(fn, origDst)
				in.Dst = tmp
				out = append(out, in)
				out = append(out, &ir.Instruction{Op: ir.OpStoreSpilled, Dst: -1, A: origDst, B: tmp})
				continue
			}
			out = append(out, in)
		}
		bl.Insns = out
	}
	id := 0
	for _, bl := range fn.Blocks {
		for _, in := range bl.Insns {
			in.ID = id
			id++
		}
	}
	return true, added
}

func spillSlotSize(size int) int {
	if size < 8 {
		return 8
	}
	return size
}

func freshTemp(fn *ir.Function, like int) int {
	src := fn.VRegs[like]
	id := len(fn.VRegs)
	tmp := &ir.VReg{ID: id, Size: src.Size, Align: src.Align, Flonum: src.Flonum, Unsigned: src.Unsigned, NoSpill: true, PhysReg: -1}
	fn.VRegs = append(fn.VRegs, tmp)
	return id
}

