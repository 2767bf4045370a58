package webserver

import (
	"html/template"
	"net/url"
)

const FrameVersion = "vNext"

// ButtonAction is what a client does when a frame button is pressed.
type ButtonAction string

const (
	ActionPost         ButtonAction = "post"
	ActionPostRedirect ButtonAction = "post_redirect"
	ActionLink         ButtonAction = "link"
	ActionMint         ButtonAction = "mint"
	ActionTx           ButtonAction = "tx"
)

// AspectRatio of the frame image.
type AspectRatio string

const (
	AspectRatioWide   AspectRatio = "1.91:1"
	AspectRatioSquare AspectRatio = "1:1"
)

// Button is one of up to four frame buttons.
type Button struct {
	Label  string
	Action ButtonAction
	// Target is the URL for link, mint and tx actions.
	Target string
}

// Frame is the meta-tag description of a Farcaster frame.
type Frame struct {
	Version     string
	Image       *url.URL
	AspectRatio AspectRatio
	Buttons     []Button
	PostURL     *url.URL
	State       string
}

const frameHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8" />
<title>Chandelier or Not</title>
<meta property="og:image" content="{{.Image}}" />
<meta property="fc:frame" content="{{.Version}}" />
<meta property="fc:frame:image" content="{{.Image}}" />
<meta property="fc:frame:image:aspect_ratio" content="{{.AspectRatio}}" />
{{- range $i, $b := .Buttons}}
<meta property="fc:frame:button:{{inc $i}}" content="{{$b.Label}}" />
<meta property="fc:frame:button:{{inc $i}}:action" content="{{$b.Action}}" />
{{- if $b.Target}}
<meta property="fc:frame:button:{{inc $i}}:target" content="{{$b.Target}}" />
{{- end}}
{{- end}}
{{- if .PostURL}}
<meta property="fc:frame:post_url" content="{{.PostURL}}" />
{{- end}}
{{- if .State}}
<meta property="fc:frame:state" content="{{.State}}" />
{{- end}}
</head>
<body>
<img src="{{.Image}}" alt="Chandelier or not?" />
</body>
</html>
`

var frameTemplate = template.Must(template.New("frame"). //nolint:gochecknoglobals
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	Parse(frameHTML))
