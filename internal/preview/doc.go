// Package preview renders a bridge editor in a terminal with tcell and
// feeds terminal keyboard and focus events into its user input surface.
//
// The preview stands in for the embedding page during local development:
// keys typed here reach the backend exactly as user edits would, so change
// coalescing, keybindings and markers can be exercised without a webview.
package preview
