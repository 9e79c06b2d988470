package events

import "github.com/strikeview/strikeview/internal/models"

// verboseTemplate renders one namespaced identifier into a leveled log line.
// Placeholders in the template are substituted from the event payload;
// unresolved ones are stripped.
type verboseTemplate struct {
	level    models.LogLevel
	template string
}

// verboseTemplates is the second-priority dispatch table covering the dotted
// "verbose" identifiers the engine emits during deep scanning. Identifiers
// not listed here are handled by the auto-formatter.
var verboseTemplates = map[string]verboseTemplate{
	// Reconnaissance
	"recon.subdomain.found":    {models.LevelInfo, "Subdomain discovered: {subdomain}"},
	"recon.dns.resolved":       {models.LevelDebug, "Resolved {host} to {address}"},
	"recon.port.open":          {models.LevelInfo, "Open port {port}/{protocol} on {host}"},
	"recon.port.closed":        {models.LevelDebug, "Port {port} closed on {host}"},
	"recon.service.identified": {models.LevelInfo, "Service on {host}:{port} identified as {service}"},
	"recon.whois.complete":     {models.LevelDebug, "WHOIS lookup complete for {domain}"},
	"recon.cert.parsed":        {models.LevelDebug, "Certificate parsed for {host}: {names} names"},
	"recon.takeover.candidate": {models.LevelWarning, "Possible subdomain takeover: {subdomain} points to {target}"},

	// Crawling
	"crawl.page.visited":      {models.LevelDebug, "Visited {url}"},
	"crawl.form.found":        {models.LevelInfo, "Form found at {url} with {fields} fields"},
	"crawl.link.extracted":    {models.LevelDebug, "Link extracted: {url}"},
	"crawl.js.parsed":         {models.LevelDebug, "JavaScript parsed at {url}"},
	"crawl.endpoint.found":    {models.LevelInfo, "Endpoint found: {method} {url}"},
	"crawl.redirect.followed": {models.LevelDebug, "Redirect followed: {from} to {to}"},
	"crawl.depth.limit":       {models.LevelWarning, "Crawl depth limit reached at {url}"},
	"crawl.sitemap.parsed":    {models.LevelInfo, "Sitemap parsed: {count} URLs"},
	"crawl.robots.parsed":     {models.LevelDebug, "robots.txt parsed: {count} rules"},

	// Fuzzing
	"fuzz.param.start":        {models.LevelDebug, "Fuzzing parameter {param} at {url}"},
	"fuzz.param.reflected":    {models.LevelWarning, "Parameter {param} reflected in response at {url}"},
	"fuzz.payload.sent":       {models.LevelDebug, "Fuzz payload sent: {payload}"},
	"fuzz.anomaly.detected":   {models.LevelWarning, "Response anomaly for {param} at {url}: {detail}"},
	"fuzz.baseline.set":       {models.LevelDebug, "Response baseline set for {url}"},
	"fuzz.wordlist.exhausted": {models.LevelDebug, "Wordlist exhausted for {param} at {url}"},

	// SQL injection
	"exploit.sqli.testing":   {models.LevelInfo, "Testing {param} at {url} for SQL injection"},
	"exploit.sqli.suspected": {models.LevelWarning, "Possible SQL injection via {param} at {url}"},
	"exploit.sqli.confirmed": {models.LevelCritical, "SQL injection confirmed via {param} at {url}"},
	"exploit.sqli.extracted": {models.LevelCritical, "Data extracted via SQL injection at {url}: {detail}"},

	// Cross-site scripting
	"exploit.xss.testing":   {models.LevelInfo, "Testing {param} at {url} for XSS"},
	"exploit.xss.reflected": {models.LevelWarning, "Reflected XSS candidate via {param} at {url}"},
	"exploit.xss.stored":    {models.LevelCritical, "Stored XSS confirmed at {url}"},
	"exploit.xss.dom":       {models.LevelWarning, "DOM XSS sink found at {url}: {sink}"},
	"exploit.xss.confirmed": {models.LevelCritical, "XSS confirmed via {param} at {url}"},

	// Server-side request forgery
	"exploit.ssrf.testing":   {models.LevelInfo, "Testing {param} at {url} for SSRF"},
	"exploit.ssrf.callback":  {models.LevelCritical, "SSRF callback received from {url}"},
	"exploit.ssrf.confirmed": {models.LevelCritical, "SSRF confirmed via {param} at {url}"},

	// Insecure direct object reference
	"exploit.idor.testing":   {models.LevelInfo, "Testing {url} for IDOR"},
	"exploit.idor.suspected": {models.LevelWarning, "Possible IDOR at {url}: {detail}"},
	"exploit.idor.confirmed": {models.LevelCritical, "IDOR confirmed at {url}"},

	// Remote code execution
	"exploit.rce.testing":   {models.LevelInfo, "Testing {param} at {url} for command injection"},
	"exploit.rce.confirmed": {models.LevelCritical, "Command injection confirmed via {param} at {url}"},
	"exploit.rce.shell":     {models.LevelCritical, "Interactive shell obtained on {host}"},

	// File inclusion
	"exploit.lfi.testing":   {models.LevelInfo, "Testing {param} at {url} for file inclusion"},
	"exploit.lfi.traversal": {models.LevelWarning, "Path traversal candidate via {param} at {url}"},
	"exploit.lfi.confirmed": {models.LevelCritical, "Local file inclusion confirmed via {param} at {url}"},

	// Other exploit classes
	"exploit.xxe.testing":        {models.LevelInfo, "Testing {url} for XXE"},
	"exploit.xxe.confirmed":      {models.LevelCritical, "XXE confirmed at {url}"},
	"exploit.csrf.missing_token": {models.LevelWarning, "CSRF token missing on form at {url}"},
	"exploit.csrf.confirmed":     {models.LevelError, "CSRF confirmed at {url}"},
	"exploit.redirect.open":      {models.LevelWarning, "Open redirect via {param} at {url}"},

	"exploit.upload.unrestricted": {models.LevelCritical, "Unrestricted file upload at {url}"},

	// Authentication
	"auth.login.attempt":    {models.LevelDebug, "Login attempt as {username} at {url}"},
	"auth.login.success":    {models.LevelInfo, "Login succeeded as {username}"},
	"auth.login.failed":     {models.LevelWarning, "Login failed as {username}: {reason}"},
	"auth.bruteforce.start": {models.LevelWarning, "Credential testing started against {url}"},
	"auth.bruteforce.hit":   {models.LevelCritical, "Valid credentials found: {username}"},
	"auth.token.captured":   {models.LevelInfo, "Auth token captured for {username}"},
	"auth.token.expired":    {models.LevelWarning, "Auth token expired, re-authenticating"},
	"auth.mfa.detected":     {models.LevelInfo, "Multi-factor authentication detected at {url}"},
	"auth.lockout.detected": {models.LevelWarning, "Account lockout detected for {username}"},

	// Sessions
	"session.cookie.insecure":    {models.LevelWarning, "Insecure cookie {name} at {url}: {detail}"},
	"session.cookie.captured":    {models.LevelInfo, "Session cookie captured for {host}"},
	"session.fixation.suspected": {models.LevelWarning, "Possible session fixation at {url}"},
	"session.expired":            {models.LevelInfo, "Session expired for {host}"},
	"session.renewed":            {models.LevelInfo, "Session renewed for {host}"},

	// APIs
	"api.endpoint.found":     {models.LevelInfo, "API endpoint found: {method} {url}"},
	"api.schema.parsed":      {models.LevelInfo, "API schema parsed at {url}: {operations} operations"},
	"api.key.exposed":        {models.LevelCritical, "API key exposed at {url}"},
	"api.cors.misconfigured": {models.LevelWarning, "CORS misconfiguration at {url}: {detail}"},
	"api.method.unexpected":  {models.LevelWarning, "Unexpected method {method} accepted at {url}"},
	"api.version.deprecated": {models.LevelWarning, "Deprecated API version in use at {url}"},
	"api.ratelimit.absent":   {models.LevelWarning, "No rate limiting detected at {url}"},

	// Client-side assets
	"js.secret.found":     {models.LevelCritical, "Secret found in JavaScript at {url}"},
	"js.endpoint.found":   {models.LevelInfo, "Endpoint found in JavaScript: {endpoint}"},
	"js.sourcemap.found":  {models.LevelWarning, "Source map exposed at {url}"},
	"js.library.outdated": {models.LevelWarning, "Outdated library {name} {version} at {url}"},

	// Defenses
	"waf.detected": {models.LevelInfo, "WAF detected: {vendor}"},
	"waf.blocked":  {models.LevelWarning, "Request blocked by WAF at {url}"},
	"waf.bypassed": {models.LevelWarning, "WAF bypass succeeded at {url}"},

	"ratelimit.hit":     {models.LevelWarning, "Rate limit hit at {url}"},
	"ratelimit.backoff": {models.LevelInfo, "Backing off {seconds}s after rate limit"},

	// Transport security
	"tls.weak_cipher":      {models.LevelWarning, "Weak TLS cipher on {host}: {cipher}"},
	"tls.expired_cert":     {models.LevelWarning, "Expired certificate on {host}"},
	"tls.self_signed":      {models.LevelWarning, "Self-signed certificate on {host}"},
	"tls.handshake.failed": {models.LevelError, "TLS handshake failed with {host}: {reason}"},

	// DNS posture
	"dns.zone_transfer":     {models.LevelCritical, "DNS zone transfer allowed on {server}"},
	"dns.wildcard.detected": {models.LevelInfo, "Wildcard DNS detected for {domain}"},
	"dns.spf.missing":       {models.LevelWarning, "SPF record missing for {domain}"},
	"dns.dmarc.missing":     {models.LevelWarning, "DMARC record missing for {domain}"},

	// Response headers
	"headers.csp.missing":      {models.LevelWarning, "Content-Security-Policy missing at {url}"},
	"headers.hsts.missing":     {models.LevelWarning, "HSTS missing at {url}"},
	"headers.xfo.missing":      {models.LevelWarning, "X-Frame-Options missing at {url}"},
	"headers.server.disclosed": {models.LevelInfo, "Server header discloses {server} at {url}"},

	// Information disclosure
	"info.email.found":       {models.LevelInfo, "Email address found: {email}"},
	"info.comment.sensitive": {models.LevelWarning, "Sensitive HTML comment at {url}"},
	"info.backup.found":      {models.LevelWarning, "Backup file found: {url}"},
	"info.git.exposed":       {models.LevelCritical, "Git repository exposed at {url}"},
	"info.env.exposed":       {models.LevelCritical, "Environment file exposed at {url}"},
	"info.debug.enabled":     {models.LevelWarning, "Debug mode enabled at {url}"},

	// Agent internals
	"agent.task.claimed":  {models.LevelDebug, "{agent} claimed task {task}"},
	"agent.task.finished": {models.LevelDebug, "{agent} finished task {task}"},
	"agent.restarted":     {models.LevelWarning, "{agent} restarted after {reason}"},
	"agent.crashed":       {models.LevelError, "{agent} crashed: {reason}"},

	// Model internals
	"llm.plan.revised":      {models.LevelInfo, "Model revised the attack plan: {reason}"},
	"llm.context.truncated": {models.LevelWarning, "Model context truncated to {tokens} tokens"},
	"llm.budget.exceeded":   {models.LevelWarning, "Model token budget exceeded for {agent}"},

	// Reporting and queueing
	"report.evidence.attached": {models.LevelInfo, "Evidence attached for finding {finding}"},
	"queue.task.dropped":       {models.LevelWarning, "Task dropped from {agent} queue: {reason}"},
	"queue.backpressure":       {models.LevelWarning, "Queue backpressure on {agent}: {depth} pending"},
}
