package web_assets

import "embed"

//go:embed index.html style.css
var Assets embed.FS
