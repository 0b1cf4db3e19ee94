// Command portald runs the captive access point stack: a DHCP server
// handing out addresses on the portal subnet, a DNS responder answering
// every name with the portal address and a one-request HTTP server for
// the portal pages.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apcore/portal"
	"github.com/apcore/portal/dhcp4"
	"github.com/apcore/portal/dns"
	"github.com/apcore/portal/httpd"
	"github.com/apcore/portal/netcfg"
	log "github.com/sirupsen/logrus"
)

var (
	configFile = flag.String("c", "portald.yml", "configuration file")
	logLevel   = flag.String("d", "", "override log level: error, info or debug")
)

func main() {
	flag.Parse()

	config, err := portal.LoadConfig(*configFile)
	if err != nil {
		fmt.Println("invalid configuration", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}
	level, err := log.ParseLevel(config.LogLevel)
	if err != nil {
		fmt.Println("invalid log level", config.LogLevel)
		os.Exit(1)
	}
	log.SetLevel(level)
	if level >= log.DebugLevel {
		portal.Debug = true
		dhcp4.Debug = true
		dns.Debug = true
		httpd.Debug = true
	}

	if err := netcfg.EnsureAddr(config.Interface, config.Prefix); err != nil {
		log.WithField("error", err).Error("portald: interface setup failed")
		os.Exit(1)
	}
	serverAddr := config.Prefix.Addr()

	dhcpConn, err := dhcp4.NewListener(config.Interface)
	if err != nil {
		log.WithField("error", err).Error("portald: dhcp listen failed")
		os.Exit(1)
	}
	dhcpd, err := dhcp4.Config{
		NetAddr:    config.Prefix,
		PoolSize:   config.PoolSize,
		BaseOffset: config.BaseOffset,
		LeaseTime:  time.Duration(config.LeaseSeconds) * time.Second,
		Conn:       dhcpConn,
	}.New()
	if err != nil {
		log.WithField("error", err).Error("portald: dhcp setup failed")
		os.Exit(1)
	}

	dnsConn, err := net.ListenPacket("udp4", fmt.Sprintf("%s:%d", serverAddr, dns.ServerPort))
	if err != nil {
		log.WithField("error", err).Error("portald: dns listen failed")
		os.Exit(1)
	}
	dnsd, err := dns.New(serverAddr, dnsConn)
	if err != nil {
		log.WithField("error", err).Error("portald: dns setup failed")
		os.Exit(1)
	}

	listener, err := net.Listen("tcp4", fmt.Sprintf("%s:%d", serverAddr, httpd.ServerPort))
	if err != nil {
		log.WithField("error", err).Error("portald: http listen failed")
		os.Exit(1)
	}
	web, err := httpd.New(listener, httpd.NewRouteTable(config.Pages).Resolve)
	if err != nil {
		log.WithField("error", err).Error("portald: http setup failed")
		os.Exit(1)
	}

	go func() {
		if err := dhcpd.Serve(); err != nil {
			log.WithField("error", err).Error("portald: dhcp server stopped")
		}
	}()
	go func() {
		if err := dnsd.Serve(); err != nil {
			log.WithField("error", err).Error("portald: dns server stopped")
		}
	}()
	go func() {
		if err := web.Serve(); err != nil {
			log.WithField("error", err).Error("portald: http server stopped")
		}
	}()
	log.WithFields(log.Fields{"interface": config.Interface, "addr": serverAddr}).Info("portald: running")

	// terminate cleanly on ctrl-C or sigterm
	c := make(chan os.Signal, 2)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	web.Close()
	dnsd.Close()
	dhcpd.Close()
	time.Sleep(time.Second)
}
