package srtp

import "sync"

// ManagerConfig configures an SrtpManager at construction. ReplayCheck is
// resolved once, from the caller's configuration; there is no process-wide
// toggle.
type ManagerConfig struct {
	Policy            Policy
	KeyDerivationRate uint64
	ReplayCheck       bool
}

// SrtpManager owns the four SSRC-keyed context maps that route packets to
// the right per-stream state machine. Contexts are created from keying
// material obtained externally (the DTLS-SRTP exporter). This is the only
// type in this package with internal locking: individual contexts are
// single-threaded by contract, but the maps themselves may be touched by
// multiple callers adding streams concurrently.
type SrtpManager struct {
	cfg ManagerConfig

	mu           sync.Mutex
	outboundRTP  map[uint32]*RtpContext
	inboundRTP   map[uint32]*RtpContext
	outboundRTCP map[uint32]*RtcpContext
	inboundRTCP  map[uint32]*RtcpContext
}

// NewSrtpManager constructs an empty manager for the given configuration.
func NewSrtpManager(cfg ManagerConfig) *SrtpManager {
	return &SrtpManager{
		cfg:          cfg,
		outboundRTP:  make(map[uint32]*RtpContext),
		inboundRTP:   make(map[uint32]*RtpContext),
		outboundRTCP: make(map[uint32]*RtcpContext),
		inboundRTCP:  make(map[uint32]*RtcpContext),
	}
}

// AddOutboundStream installs the keying material for a new outbound SSRC,
// creating both its RTP and RTCP send contexts. Typically called once per
// SSRC the local endpoint begins transmitting on.
func (m *SrtpManager) AddOutboundStream(ssrc uint32, master MasterKeyMaterial) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rtpMaster := MasterKeyMaterial{Key: append([]byte(nil), master.Key...), Salt: append([]byte(nil), master.Salt...)}
	rtcpMaster := MasterKeyMaterial{Key: append([]byte(nil), master.Key...), Salt: append([]byte(nil), master.Salt...)}

	rtp, err := NewRtpContext(ssrc, true, m.cfg.Policy, rtpMaster, m.cfg.KeyDerivationRate, m.cfg.ReplayCheck)
	if err != nil {
		return err
	}
	rtcp, err := NewRtcpContext(ssrc, true, m.cfg.Policy, rtcpMaster, m.cfg.ReplayCheck)
	if err != nil {
		return err
	}

	m.outboundRTP[ssrc] = rtp
	m.outboundRTCP[ssrc] = rtcp
	log.Debug("srtp: installed outbound contexts for ssrc=%08x", ssrc)
	return nil
}

// AddInboundStream installs the keying material for a new inbound SSRC,
// creating both its RTP and RTCP receive contexts. Typically called the
// first time a packet for an unknown SSRC arrives.
func (m *SrtpManager) AddInboundStream(ssrc uint32, master MasterKeyMaterial) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rtpMaster := MasterKeyMaterial{Key: append([]byte(nil), master.Key...), Salt: append([]byte(nil), master.Salt...)}
	rtcpMaster := MasterKeyMaterial{Key: append([]byte(nil), master.Key...), Salt: append([]byte(nil), master.Salt...)}

	rtp, err := NewRtpContext(ssrc, false, m.cfg.Policy, rtpMaster, m.cfg.KeyDerivationRate, m.cfg.ReplayCheck)
	if err != nil {
		return err
	}
	rtcp, err := NewRtcpContext(ssrc, false, m.cfg.Policy, rtcpMaster, m.cfg.ReplayCheck)
	if err != nil {
		return err
	}

	m.inboundRTP[ssrc] = rtp
	m.inboundRTCP[ssrc] = rtcp
	log.Debug("srtp: installed inbound contexts for ssrc=%08x", ssrc)
	return nil
}

// DeriveContext clones this manager's policy onto a fresh outbound RTP
// context for newSSRC, seeded with initialROC as its starting rollover
// counter. Used when a sender begins a new stream (e.g. simulcast) sharing
// DTLS-level keying material but needing its own replay/index state.
func (m *SrtpManager) DeriveContext(newSSRC uint32, master MasterKeyMaterial, initialROC uint32, kdr uint64) (*RtpContext, error) {
	ctx, err := NewRtpContext(newSSRC, true, m.cfg.Policy, master, kdr, m.cfg.ReplayCheck)
	if err != nil {
		return nil, err
	}
	ctx.roc = initialROC

	m.mu.Lock()
	m.outboundRTP[newSSRC] = ctx
	m.mu.Unlock()

	return ctx, nil
}

// TransformRTP protects an outgoing RTP packet on the named SSRC's context.
func (m *SrtpManager) TransformRTP(ssrc uint32, header RtpHeader, payload []byte) ([]byte, error) {
	ctx, err := m.lookupRTP(&m.outboundRTP, ssrc)
	if err != nil {
		return nil, err
	}
	return ctx.Transform(header, payload)
}

// ReverseTransformRTP unprotects a received SRTP packet. The SSRC is read
// directly from the packet; the caller does not need to know it ahead of
// time.
func (m *SrtpManager) ReverseTransformRTP(buf []byte) (RtpHeader, []byte, error) {
	header, _, err := readRtpHeader(buf)
	if err != nil {
		return RtpHeader{}, nil, &ContextError{Kind: ErrKindPacketTooShort}
	}

	ctx, err := m.lookupRTP(&m.inboundRTP, header.SSRC)
	if err != nil {
		return RtpHeader{}, nil, err
	}
	h, payload, err := ctx.ReverseTransform(buf)
	if err != nil {
		logReject(header.SSRC, err)
	}
	return h, payload, err
}

// TransformRTCP protects an outgoing RTCP compound packet on the named
// SSRC's context.
func (m *SrtpManager) TransformRTCP(ssrc uint32, packet []byte) ([]byte, error) {
	ctx, err := m.lookupRTCP(&m.outboundRTCP, ssrc)
	if err != nil {
		return nil, err
	}
	return ctx.Transform(packet)
}

// ReverseTransformRTCP unprotects a received SRTCP packet, dispatching by
// the SSRC carried in its fixed header.
func (m *SrtpManager) ReverseTransformRTCP(buf []byte) ([]byte, error) {
	ssrc, err := rtcpSSRC(buf)
	if err != nil {
		return nil, &ContextError{Kind: ErrKindPacketTooShort}
	}

	ctx, err := m.lookupRTCP(&m.inboundRTCP, ssrc)
	if err != nil {
		return nil, err
	}
	packet, err := ctx.ReverseTransform(buf)
	if err != nil {
		logReject(ssrc, err)
	}
	return packet, err
}

// logReject records a dropped packet at Debug level: SSRC and error kind
// only, never key material or tag bytes.
func logReject(ssrc uint32, err error) {
	if ce, ok := err.(*ContextError); ok {
		log.Debug("srtp: dropped packet ssrc=%08x kind=%s", ssrc, ce.Kind)
		return
	}
	log.Debug("srtp: dropped packet ssrc=%08x err=%v", ssrc, err)
}

func (m *SrtpManager) lookupRTP(table *map[uint32]*RtpContext, ssrc uint32) (*RtpContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx, ok := (*table)[ssrc]
	if !ok {
		log.Error("srtp: no context installed for ssrc=%08x", ssrc)
		return nil, &ContextError{Kind: ErrKindKeyNotDerived, SSRC: ssrc}
	}
	return ctx, nil
}

func (m *SrtpManager) lookupRTCP(table *map[uint32]*RtcpContext, ssrc uint32) (*RtcpContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx, ok := (*table)[ssrc]
	if !ok {
		log.Error("srtp: no context installed for ssrc=%08x", ssrc)
		return nil, &ContextError{Kind: ErrKindKeyNotDerived, SSRC: ssrc}
	}
	return ctx, nil
}

// Close tears down every context the manager owns, zeroizing their key
// material.
func (m *SrtpManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ctx := range m.outboundRTP {
		ctx.Close()
	}
	for _, ctx := range m.inboundRTP {
		ctx.Close()
	}
	for _, ctx := range m.outboundRTCP {
		ctx.Close()
	}
	for _, ctx := range m.inboundRTCP {
		ctx.Close()
	}
}
