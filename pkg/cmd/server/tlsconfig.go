package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/config"
)

// certProvider serves the current key pair and reloads it when the files change.
type certProvider struct {
	ctx      context.Context
	certFile string
	keyFile  string
	l        *log.Logger
	mu       sync.RWMutex
	cert     *tls.Certificate
}

// newTLSConfig returns nil if no key pair is configured.
func newTLSConfig(ctx context.Context) (*tls.Config, error) {
	if config.TLSCertFile == "" || config.TLSKeyFile == "" {
		return nil, nil
	}
	c := &certProvider{
		ctx:      ctx,
		certFile: config.TLSCertFile,
		keyFile:  config.TLSKeyFile,
		l:        log.Default().Named("server.certs"),
	}
	if err := c.loadCert(); err != nil {
		return nil, err
	}
	ret := &tls.Config{
		GetCertificate: c.getCertificate,
		MinVersion:     tls.VersionTLS13,
	}
	if config.TLSCAFile != "" {
		c.l.Info("Loading ca cert", log.String("file", config.TLSCAFile))
		caCert, err := os.ReadFile(config.TLSCAFile)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(caCert); !ok {
			return nil, errors.New("no certificates found in ca file")
		}
		ret.ClientCAs = pool
		ret.ClientAuth = tls.VerifyClientCertIfGiven
	}
	if err := c.watch(); err != nil {
		c.l.Warn("certs will not be reloaded", log.ErrorField(err))
	}
	return ret, nil
}

func (c *certProvider) getCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cert, nil
}

func (c *certProvider) watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, f := range []string{c.certFile, c.keyFile} {
		if err := watcher.Add(f); err != nil {
			watcher.Close()
			return err
		}
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-c.ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Chmod) {
					c.l.Info("cert file changed, reloading", log.String("file", ev.Name))
					if err := c.loadCert(); err != nil {
						c.l.Error("could not reload cert", log.ErrorField(err))
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.l.Error("watcher error", log.ErrorField(err))
			}
		}
	}()
	return nil
}

func (c *certProvider) loadCert() error {
	c.l.Info("Loading cert",
		log.String("key", c.keyFile),
		log.String("cert", c.certFile))
	cert, err := tls.LoadX509KeyPair(c.certFile, c.keyFile)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cert = &cert
	return nil
}
