// Package colony carries the demo processes and protocols the CLI wires
// into the kernel. Everything here talks to the kernel through its public
// boundary only; nothing in pkg/ imports colony.
package colony

import (
	"github.com/hiveworks/swarmkernel/pkg/kernel"
)

// MessagingProtocol exports a mailbox shared by all processes. Protocol
// instances are singletons, so the mailbox survives across invocations
// for as long as the host keeps the kernel alive.
type MessagingProtocol struct {
	mailboxes map[string][]string
}

// NewMessagingProtocol creates an empty mailbox protocol.
func NewMessagingProtocol() *MessagingProtocol {
	return &MessagingProtocol{mailboxes: make(map[string][]string)}
}

// Exports publishes sendMessage and drainMessages.
func (p *MessagingProtocol) Exports() map[string]kernel.Capability {
	return map[string]kernel.Capability{
		"sendMessage": func(to, body string) {
			p.mailboxes[to] = append(p.mailboxes[to], body)
		},
		"drainMessages": func(to string) []string {
			msgs := p.mailboxes[to]
			delete(p.mailboxes, to)
			return msgs
		},
	}
}

// NamingProtocol exports a first-claim-wins name registry.
type NamingProtocol struct {
	owners map[string]string
}

// NewNamingProtocol creates an empty name registry.
func NewNamingProtocol() *NamingProtocol {
	return &NamingProtocol{owners: make(map[string]string)}
}

// Exports publishes claimName and resolveName.
func (p *NamingProtocol) Exports() map[string]kernel.Capability {
	return map[string]kernel.Capability{
		"claimName": func(name, owner string) bool {
			if _, taken := p.owners[name]; taken {
				return false
			}
			p.owners[name] = owner
			return true
		},
		"resolveName": func(name string) (string, bool) {
			owner, ok := p.owners[name]
			return owner, ok
		},
	}
}

// RegisterProtocols wires the demo protocols into a kernel.
func RegisterProtocols(k *kernel.Kernel) error {
	if err := k.RegisterProtocol("messaging", func() kernel.Protocol {
		return NewMessagingProtocol()
	}); err != nil {
		return err
	}
	return k.RegisterProtocol("naming", func() kernel.Protocol {
		return NewNamingProtocol()
	})
}
