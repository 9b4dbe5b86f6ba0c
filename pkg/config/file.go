package config

import (
	"bytes"
	"text/template"
)

var configFileTmpl = template.Must(template.New("config").Parse(`# Largo server configurations

# The name of the server.
name: "{{ .Name }}"

# Logging configuration.
log:
  # Log format to use. Valid values are "json", "logfmt", and "text".
  format: "{{ .Log.Format }}"
  # Time format for the log "timestamp" field.
  # Should be described in Golang's time format.
  time_format: "{{ .Log.TimeFormat }}"
  # Path to the log file. Leave empty to write to stderr.
  #path: "{{ .Log.Path }}"

# The HTTP server configuration.
http:
  # The address on which the HTTP server will listen.
  listen_addr: "{{ .HTTP.ListenAddr }}"

  # The path to the TLS private key.
  tls_key_path: "{{ .HTTP.TLSKeyPath }}"

  # The path to the TLS certificate.
  tls_cert_path: "{{ .HTTP.TLSCertPath }}"

  # The public URL of the HTTP server.
  # This is the address clients use to reach the batch API and, for the
  # "basic" transfer adapter, the object storage endpoints.
  public_url: "{{ .HTTP.PublicURL }}"

# The stats server configuration.
stats:
  # The address on which the stats server will listen.
  listen_addr: "{{ .Stats.ListenAddr }}"

# The storage backend configuration.
storage:
  # The storage backend to use. Valid values are "local" and "s3".
  backend: "{{ .Storage.Backend }}"

  # The local storage root directory. Only used by the "local" backend.
  root: "{{ .Storage.Root }}"

  # An optional path prefix objects are stored under.
  prefix: "{{ .Storage.Prefix }}"

# The S3-compatible backend configuration. Only used when the storage
# backend is "s3".
s3:
  # The S3 server endpoint, host or host:port.
  endpoint: "{{ .S3.Endpoint }}"

  # The bucket objects are stored in. Created on startup when missing.
  bucket: "{{ .S3.Bucket }}"

  # The bucket region.
  region: "{{ .S3.Region }}"

  # Static credentials. Prefer setting these through the environment,
  # LARGO_S3_ACCESS_KEY and LARGO_S3_SECRET_KEY.
  access_key: "{{ .S3.AccessKey }}"
  secret_key: "{{ .S3.SecretKey }}"

  # Whether to connect over TLS.
  use_ssl: {{ .S3.UseSSL }}

# The transfer adapter configuration.
transfer:
  # The transfer adapter to use. Valid values are "basic" (object bytes
  # stream through this server) and "external" (clients upload and download
  # directly to the storage backend via signed URLs).
  adapter: "{{ .Transfer.Adapter }}"

  # The number of seconds a produced action stays valid.
  action_lifetime: {{ .Transfer.ActionLifetime }}

# The path to the Ed25519 key used to sign action tokens.
# The key is generated when missing.
signing_key_path: "{{ .SigningKeyPath }}"
`))

func newConfigFile(cfg *Config) string {
	var b bytes.Buffer
	if err := configFileTmpl.Execute(&b, cfg); err != nil {
		return ""
	}
	return b.String()
}
