/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package util

import (
	"net"
	"os"
	"sync"
)

var (
	localIp     string
	hostname    string
	netInitOnce sync.Once
)

func initNet() {
	// eth0 first, otherwise the first ipv4 of an up, non loopback interface
	firstIp := ""
	eth0Ip := ""

	interfaces, _ := net.Interfaces()
interfaceLoop:
	for _, i := range interfaces {
		if i.Flags&net.FlagUp != net.FlagUp || i.Flags&net.FlagLoopback == net.FlagLoopback {
			continue
		}
		addrs, err := i.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ipv4 := ipNet.IP.To4()
			if ipv4 == nil {
				continue
			}
			ip := ipv4.String()
			if firstIp == "" {
				firstIp = ip
			}
			if i.Name == "eth0" {
				eth0Ip = ip
				break interfaceLoop
			}
		}
	}

	if eth0Ip != "" {
		localIp = eth0Ip
	} else {
		localIp = firstIp
	}

	if h, err := os.Hostname(); err == nil && h != "" {
		hostname = h
	} else {
		hostname = localIp
	}
}

// GetLocalIp get local ipv4
func GetLocalIp() string {
	netInitOnce.Do(initNet)
	return localIp
}

func GetHostname() string {
	netInitOnce.Do(initNet)
	return hostname
}

// SetLocalIp overrides the detected ip, e.g. with the POD_IP of a container.
func SetLocalIp(ip string) {
	netInitOnce.Do(initNet)
	localIp = ip
}
