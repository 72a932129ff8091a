// Package avedge fetches A/V Edge (MRAS) relay credentials via a SIP
// SERVICE request and resolves the returned relay hostnames to IP
// addresses. Wire parsing uses encoding/xml, the only XML facility
// anywhere in the reference stack (see DESIGN.md).
package avedge

import (
	"context"
	"encoding/xml"
	"fmt"
	"net"
	"sync"

	"github.com/lyncmedia/mediacore/pkg/coreerr"
	"github.com/lyncmedia/mediacore/pkg/corelog"
	"github.com/lyncmedia/mediacore/pkg/coremetrics"
)

// credentialsResponse mirrors the msrtc-media-relay-auth+xml body the
// MRAS server returns.
type credentialsResponse struct {
	XMLName xml.Name `xml:"credentialsResponse"`
	ReasonPhrase string `xml:"reasonPhrase,attr"`
	Credentials struct {
		Username string `xml:"username"`
		Password string `xml:"password"`
	} `xml:"credentials"`
	MediaRelayList struct {
		MediaRelay []struct {
			HostName string `xml:"hostName"`
			UDPPort int `xml:"udpPort"`
			TCPPort int `xml:"tcpPort"`
		} `xml:"mediaRelay"`
	} `xml:"mediaRelayList"`
}

// Relay is one A/V Edge media relay, its hostname rewritten to an IP
// once DNS resolution completes.
type Relay struct {
	Hostname string
	UDPPort int
	TCPPort int
}

// Credentials is the process-wide (per-account) state this client
// maintains: a username/password pair and the ordered relay list.
type Credentials struct {
	Username string
	Password string
	Relays []Relay
}

// SipRequester is the narrow transport capability this client needs:
// send a SERVICE request with a body and content type, get back a
// status code, reason phrase and body.
type SipRequester interface {
	SendService(ctx context.Context, uri, body, contentType string) (statusCode int, reasonPhrase, respBody string, err error)
}

// Resolver abstracts DNS A-record lookup so tests can fake it without
// touching the network; production wiring uses net.Resolver directly.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Client issues credential requests against the configured MRAS URI
// and keeps the resulting Credentials up to date.
type Client struct {
	mu sync.RWMutex

	mrasURI string
	remoteUser bool

	transport SipRequester
	resolver Resolver

	logger corelog.Logger
	metrics *coremetrics.Collector

	current Credentials

	cancelResolve context.CancelFunc
}

func NewClient(mrasURI string, remoteUser bool, transport SipRequester, resolver Resolver, logger corelog.Logger, metrics *coremetrics.Collector) *Client {
	if logger == nil {
		logger = corelog.NoOpLogger{}
	}
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &Client{
		mrasURI: mrasURI,
		remoteUser: remoteUser,
		transport: transport,
		resolver: resolver,
		logger: logger.WithComponent("avedge"),
		metrics: metrics,
	}
}

// Current returns a copy of the currently cached credentials.
func (c *Client) Current() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

const credentialRequestBody = `<?xml version="1.0" encoding="utf-8"?>` +
`<credentialsRequest xmlns="http://schemas.microsoft.com/2006/09/sip/mrasp">` +
`<location>%s</location><identity/></credentialsRequest>`

// Request issues the SERVICE request and processes the response. On
// success, it kicks off asynchronous A-record resolution for each
// relay; on failure it wipes cached credentials.
func (c *Client) Request(ctx context.Context) error {
	location := "intranet"
	if c.remoteUser {
		location = "internet"
	}
	body := fmt.Sprintf(credentialRequestBody, location)

	if c.metrics != nil {
		c.metrics.RelayRequestStarted()
		defer c.metrics.RelayRequestFinished()
	}

	status, reason, respBody, err := c.transport.SendService(ctx, c.mrasURI, body, "application/msrtc-media-relay-auth+xml")
	if err != nil {
		c.invalidate()
		return coreerr.ErrRelayCredentialsDenied.WithCause(err)
	}
	if status >= 400 || reason != "OK" {
		c.invalidate()
		return coreerr.ErrRelayCredentialsDenied.WithField("status", status).WithField("reason", reason)
	}

	var parsed credentialsResponse
	if err := xml.Unmarshal([]byte(respBody), &parsed); err != nil {
		c.invalidate()
		return coreerr.ErrXMLParse.WithCause(err)
	}

	relays := make([]Relay, 0, len(parsed.MediaRelayList.MediaRelay))
	for _, r := range parsed.MediaRelayList.MediaRelay {
		relays = append(relays, Relay{Hostname: r.HostName, UDPPort: r.UDPPort, TCPPort: r.TCPPort})
	}

	c.mu.Lock()
	c.current = Credentials{
		Username: parsed.Credentials.Username,
		Password: parsed.Credentials.Password,
		Relays: relays,
	}
	c.mu.Unlock()

	c.resolveRelays()
	return nil
}

// resolveRelays runs one DNS lookup per relay on its own goroutine.
// Results come back over a channel to a single collector goroutine,
// which applies each one to the cached relay list under the client's
// mutex: the relay's hostname is swapped for the resolved IP, and a
// failed lookup leaves the hostname empty.
func (c *Client) resolveRelays() {
	c.mu.Lock()
	if c.cancelResolve != nil {
		c.cancelResolve()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelResolve = cancel
	relays := append([]Relay{}, c.current.Relays...)
	c.mu.Unlock()

	type result struct {
		index int
		ip string
		err error
	}
	results := make(chan result, len(relays))

	for i, r := range relays {
		go func(i int, hostname string) {
			addrs, err := c.resolver.LookupIPAddr(ctx, hostname)
			if err != nil || len(addrs) == 0 {
				results <- result{index: i, err: err}
				return
			}
			results <- result{index: i, ip: addrs[0].IP.String()}
		}(i, r.Hostname)
	}

	go func() {
		for range relays {
			select {
				case res := <-results:
				c.mu.Lock()
				if res.index < len(c.current.Relays) {
					if res.err == nil {
						c.current.Relays[res.index].Hostname = res.ip
					} else {
						c.current.Relays[res.index].Hostname = ""
						c.logger.Warn("relay A-record lookup failed", corelog.Err(res.err))
					}
				}
				c.mu.Unlock()
				case <-ctx.Done():
				return
			}
		}
	}()
}

// invalidate wipes cached credentials and the relay list, cancelling
// any in-flight DNS resolution.
func (c *Client) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelResolve != nil {
		c.cancelResolve()
		c.cancelResolve = nil
	}
	c.current = Credentials{}
}
