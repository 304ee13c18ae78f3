// Package gradio calls Hugging Face Gradio Spaces over their REST queue API.
// A call is a POST to /gradio_api/call/{api} that returns an event id,
// followed by a server-sent event stream on /gradio_api/call/{api}/{id}
// whose "complete" event carries the output array. Files produced by a Space
// are fetched from their URL.
//
// Spaces wraps the four Spaces the video pipeline depends on and adapts them
// to the interfaces in the generation package.
package gradio
