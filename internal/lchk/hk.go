// Package lchk implements the housekeeping packer (H): on request it
// gathers scalar counters, packs WP results two bits apiece and AP
// state+result nibbles apiece, and emits a telemetry packet
// (spec.md §4.6).
package lchk

import (
	"encoding/binary"

	"github.com/spacely/limitchecker/internal/lcclock"
	"github.com/spacely/limitchecker/internal/lcresult"
	"github.com/spacely/limitchecker/internal/lctable"
)

// wpCode is the 2-bit packed watchpoint result code (spec.md §4.6).
type wpCode uint8

const (
	wpStale wpCode = 0
	wpFalse wpCode = 1
	wpTrue  wpCode = 2
	wpError wpCode = 3
)

func packWPResult(r lcresult.WatchResult) wpCode {
	switch r {
	case lcresult.WatchStale:
		return wpStale
	case lcresult.WatchFalse:
		return wpFalse
	case lcresult.WatchTrue:
		return wpTrue
	default:
		return wpError
	}
}

// apStateCode is the 2-bit packed actionpoint state code; PERMOFF folds
// onto NOT_USED (spec.md §4.6).
type apStateCode uint8

const (
	apStateNotUsed apStateCode = 0
	apStateActive  apStateCode = 1
	apStatePassive apStateCode = 2
	apStateDisabled apStateCode = 3
)

func packAPState(s lctable.APState) apStateCode {
	switch s {
	case lctable.StateActive:
		return apStateActive
	case lctable.StatePassive:
		return apStatePassive
	case lctable.StateDisabled:
		return apStateDisabled
	default: // NOT_USED, PERMOFF
		return apStateNotUsed
	}
}

// apResultCode is the 2-bit packed actionpoint result code (spec.md §4.6).
type apResultCode uint8

const (
	apResultStale apResultCode = 0
	apResultPass  apResultCode = 1
	apResultFail  apResultCode = 2
	apResultError apResultCode = 3
)

func packAPResult(r lcresult.ActionResult) apResultCode {
	switch r {
	case lcresult.ActionStale:
		return apResultStale
	case lcresult.ActionPass:
		return apResultPass
	case lcresult.ActionFail:
		return apResultFail
	default:
		return apResultError
	}
}

// PackWatchpoints builds the WPResults byte array: byte k carries WPs
// 4k..4k+3, big-endian within the byte (4k+3 in bits 7-6 down to 4k in
// bits 1-0).
func PackWatchpoints(results []lcresult.WatchpointResult) []byte {
	out := make([]byte, (len(results)+3)/4)
	for i, wr := range results {
		code := byte(packWPResult(wr.WatchResult))
		byteIdx := i / 4
		shift := uint((i % 4) * 2)
		out[byteIdx] |= code << shift
	}
	return out
}

// PackActionpoints builds the APResults byte array: byte k carries APs
// 2k..2k+1; AP 2k+1 occupies the high nibble, AP 2k the low nibble, each
// nibble itself split into a 2-bit state and a 2-bit result.
func PackActionpoints(results []lcresult.ActionpointResult) []byte {
	out := make([]byte, (len(results)+1)/2)
	for i, ar := range results {
		nibble := byte(packAPState(ar.CurrentState))<<2 | byte(packAPResult(ar.ActionResult))
		byteIdx := i / 2
		if i%2 == 0 {
			out[byteIdx] |= nibble
		} else {
			out[byteIdx] |= nibble << 4
		}
	}
	return out
}

// Packet is the decoded form of an HK telemetry payload (spec.md §6); the
// exact field order below is part of the mission interface.
type Packet struct {
	CmdCount            uint8
	CmdErrCount         uint8
	CurrentLCState      uint8
	ActiveAPs           uint8
	APSampleCount       uint16
	PassiveRTSExecCount uint16
	WPsInUse            uint16
	RTSExecCount        uint16
	MonitoredMsgCount   uint32
	WPResults           []byte
	APResults           []byte
	Seconds             uint32
	Subseconds          uint32
}

// Marshal encodes Packet into its wire form, field order as declared
// (spec.md §6). The clock timestamp is appended after APResults; the bus
// envelope/header is the transport's responsibility, not H's.
func (p *Packet) Marshal() []byte {
	buf := make([]byte, 0, 4+2*4+4+len(p.WPResults)+len(p.APResults)+8)
	buf = append(buf, p.CmdCount, p.CmdErrCount, p.CurrentLCState, p.ActiveAPs)
	buf = binary.BigEndian.AppendUint16(buf, p.APSampleCount)
	buf = binary.BigEndian.AppendUint16(buf, p.PassiveRTSExecCount)
	buf = binary.BigEndian.AppendUint16(buf, p.WPsInUse)
	buf = binary.BigEndian.AppendUint16(buf, p.RTSExecCount)
	buf = binary.BigEndian.AppendUint32(buf, p.MonitoredMsgCount)
	buf = append(buf, p.WPResults...)
	buf = append(buf, p.APResults...)
	buf = binary.BigEndian.AppendUint32(buf, p.Seconds)
	buf = binary.BigEndian.AppendUint32(buf, p.Subseconds)
	return buf
}

// Transport is the subset of the software-bus collaborator H needs: send
// one outbound telemetry packet (spec.md §6).
type Transport interface {
	Send(messageID uint32, payload []byte) error
}

// Packer composes the tables and results into one HK packet per request
// and hands it to the bus transport (spec.md §4.6).
type Packer struct {
	Tables    *lctable.Tables
	Results   *lcresult.Results
	Clock     lcclock.Clock
	Transport Transport
	MessageID uint32
}

func New(tables *lctable.Tables, results *lcresult.Results, clock lcclock.Clock, transport Transport, messageID uint32) *Packer {
	return &Packer{Tables: tables, Results: results, Clock: clock, Transport: transport, MessageID: messageID}
}

// Build assembles a Packet from the current tables and results, without
// transmitting it. ActiveAPs is computed by walking the AP results fresh
// each call, exactly as spec.md §4.6 prescribes.
func (p *Packer) Build() *Packet {
	activeAPs := 0
	for _, ar := range p.Results.Actionpoints {
		if ar.CurrentState == lctable.StateActive {
			activeAPs++
		}
	}

	var seconds, subseconds uint32
	if p.Clock != nil {
		seconds, subseconds = p.Clock.Now()
	}

	return &Packet{
		CmdCount:            uint8(p.Results.App.CmdCount),
		CmdErrCount:         uint8(p.Results.App.CmdErrCount),
		CurrentLCState:      uint8(p.Results.App.CurrentLCState),
		ActiveAPs:           uint8(activeAPs),
		APSampleCount:       uint16(p.Results.App.APSampleCount),
		PassiveRTSExecCount: uint16(p.Results.App.PassiveRTSExecCount),
		WPsInUse:            uint16(p.Tables.WPsInUse),
		RTSExecCount:        uint16(p.Results.App.RTSExecCount),
		MonitoredMsgCount:   p.Results.App.MonitoredMsgCount,
		WPResults:           PackWatchpoints(p.Results.Watchpoints),
		APResults:           PackActionpoints(p.Results.Actionpoints),
		Seconds:             seconds,
		Subseconds:          subseconds,
	}
}

// BuildAndEmit builds the packet and hands its wire form to the bus
// transport.
func (p *Packer) BuildAndEmit() error {
	packet := p.Build()
	if p.Transport == nil {
		return nil
	}
	return p.Transport.Send(p.MessageID, packet.Marshal())
}
