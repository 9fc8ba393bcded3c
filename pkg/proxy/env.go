package proxy

// Environ returns environment assignments that route a child process's
// HTTP clients through the proxy. certFile, when non-empty, is the path
// where Certificate() has been written; it is exported as SSL_CERT_FILE.
func (p *Proxy) Environ(certFile string) []string {
	url := p.URL()
	env := []string{
		"HTTPS_PROXY=" + url,
		"https_proxy=" + url,
		"HTTP_PROXY=" + url,
		"http_proxy=" + url,
		"NO_PROXY=",
		"no_proxy=",
	}
	if certFile != "" {
		env = append(env, "SSL_CERT_FILE="+certFile)
	}
	return env
}
