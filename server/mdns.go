package server

import (
	"fmt"
	"log"

	"github.com/hashicorp/mdns"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/proto"
)

// Advertise announces the control port on the local network. The TXT
// record tells clients which transport and canvas size to expect.
func (s *Server) Advertise(instance string) (*mdns.Server, error) {
	info := []string{
		"transport=" + s.cfg.Transport,
		fmt.Sprintf("size=%dx%d", s.cfg.Width, s.cfg.Height),
	}

	service, err := mdns.NewMDNSService(instance, proto.ServiceType, "", "", s.cfg.Port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("mdns service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("mdns server: %w", err)
	}

	log.Printf("[Server] Announcing %q as %s", instance, proto.ServiceType)
	return server, nil
}
