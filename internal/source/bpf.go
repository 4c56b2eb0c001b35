package source

import (
	"fmt"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"
)

// compileBPF compiles a tcpdump-style filter expression into raw BPF
// instructions for the given link type.
func compileBPF(linkType layers.LinkType, snapLen int, filter string) ([]bpf.RawInstruction, error) {
	pcapInsns, err := pcap.CompileBPFFilter(linkType, snapLen, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to compile BPF filter %q: %w", filter, err)
	}

	// The structures are identical: Code->Op, Jt, Jf, K
	raw := make([]bpf.RawInstruction, len(pcapInsns))
	for i, insn := range pcapInsns {
		raw[i] = bpf.RawInstruction{
			Op: insn.Code,
			Jt: insn.Jt,
			Jf: insn.Jf,
			K:  insn.K,
		}
	}
	return raw, nil
}

// packetFilter runs a compiled filter in user space, for sources without a
// kernel to attach it to.
type packetFilter struct {
	vm *bpf.VM
}

func newPacketFilter(linkType layers.LinkType, snapLen int, filter string) (*packetFilter, error) {
	raw, err := compileBPF(linkType, snapLen, filter)
	if err != nil {
		return nil, err
	}
	insns, allDecoded := bpf.Disassemble(raw)
	if !allDecoded {
		return nil, fmt.Errorf("BPF filter %q: program contains unknown instructions", filter)
	}
	vm, err := bpf.NewVM(insns)
	if err != nil {
		return nil, fmt.Errorf("BPF filter %q: %w", filter, err)
	}
	return &packetFilter{vm: vm}, nil
}

// match reports whether the filter accepts the frame.
func (f *packetFilter) match(data []byte) bool {
	n, err := f.vm.Run(data)
	return err == nil && n > 0
}
