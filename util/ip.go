package util

import (
	"net"
	"strconv"
)

// GetOutboundIP 获得本机出口IP，这个函数只在启动的时候调
func GetOutboundIP() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP, nil
}

// GetLocalIP 获得内网IP
func GetLocalIP() string {
	addrs, err := net.InterfaceAddrs()

	if err != nil {
		return ""
	}

	for _, address := range addrs {

		// 检查ip地址判断是否回环地址
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}

		}
	}
	return ""
}

// AdvertiseAddr 告诉客户端的地址. host 为空时用监听的IP, 监听的是全部网卡时用出口IP
func AdvertiseAddr(host string, listen *net.UDPAddr) string {
	port := strconv.Itoa(listen.Port)
	if host != "" {
		return net.JoinHostPort(host, port)
	}
	if listen.IP != nil && !listen.IP.IsUnspecified() {
		return net.JoinHostPort(listen.IP.String(), port)
	}
	if ip, err := GetOutboundIP(); err == nil {
		return net.JoinHostPort(ip.String(), port)
	}
	if ip := GetLocalIP(); ip != "" {
		return net.JoinHostPort(ip, port)
	}
	return net.JoinHostPort("127.0.0.1", port)
}
