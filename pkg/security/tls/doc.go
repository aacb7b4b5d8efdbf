/*
Package tls builds the HTTPS configuration of the API server.

The server certificate is served through a CertificateReloader, which
checks the certificate and key files for changes and swaps in the new
pair without a restart. A certificate that fails to load or has expired
is rejected and the previous one stays in use.

Setting server.tls.client_ca_file enables mutual TLS: clients must present
a certificate signed by one of the listed CAs.

	reloader := tls.NewCertificateReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval, logger)
	tlsConfig, err := tls.NewServerConfig(cfg, reloader)
	...
	go reloader.Run(ctx)
*/
package tls
