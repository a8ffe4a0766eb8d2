// Package dial opens a peer link from a URL.
package dial

import (
	"fmt"
	"net/url"

	"github.com/robotalks/backpack/pkg/config"
	fx "github.com/robotalks/backpack/pkg/framework"
	"github.com/robotalks/backpack/pkg/transport"
	"github.com/robotalks/backpack/pkg/transport/mqtt"
	"github.com/robotalks/backpack/pkg/transport/websocket"
)

// Link is a peer link with its own background pump.
type Link interface {
	transport.Link
	fx.Runnable
}

// Open selects the transport by URL scheme: mqtt, mqtts, tcp and ssl
// reach a broker, ws and wss a bridge.
func Open(linkURL string, local config.Address) (Link, error) {
	u, err := url.Parse(linkURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "", "mqtt", "mqtts", "tcp", "ssl":
		return mqtt.Dial(linkURL, local)
	case "ws", "wss":
		return websocket.NewLink(linkURL, local), nil
	}
	return nil, fmt.Errorf("link scheme %q not supported", u.Scheme)
}
