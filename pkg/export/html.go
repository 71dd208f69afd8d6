package export

import (
	"bytes"
	"fmt"
	"html/template"

	"vkdump/pkg/logger"
	"vkdump/pkg/normalize"
)

// Localizer maps a remote image URL to the href to embed in a page.
// The identity function keeps remote URLs as-is.
type Localizer func(url string) string

// IdentityLocalizer keeps remote image URLs untouched
func IdentityLocalizer(url string) string {
	return url
}

// Renderer turns normalized archives into standalone HTML pages
type Renderer struct {
	localize Localizer
	logger   logger.Logger

	dialogTmpl *template.Template
	postsTmpl  *template.Template
}

// NewRenderer creates a renderer. Images are passed through localize
// before embedding, with the original URL kept as an onerror fallback.
func NewRenderer(localize Localizer, log logger.Logger) (*Renderer, error) {
	if localize == nil {
		localize = IdentityLocalizer
	}

	r := &Renderer{
		localize: localize,
		logger:   log,
	}

	funcs := template.FuncMap{
		"formatText": func(s string) template.HTML {
			return template.HTML(normalize.FormatText(s))
		},
		"localize": func(url string) string {
			return r.localize(url)
		},
	}

	dialogTmpl, err := template.New("dialog").Funcs(funcs).Parse(dialogPageTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dialog template: %w", err)
	}
	r.dialogTmpl = dialogTmpl

	postsTmpl, err := template.New("posts").Funcs(funcs).Parse(postsPageTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse posts template: %w", err)
	}
	r.postsTmpl = postsTmpl

	return r, nil
}

// DialogHTML renders a dialog archive as a standalone page
func (r *Renderer) DialogHTML(dialog *normalize.Dialog) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.dialogTmpl.Execute(&buf, dialog); err != nil {
		return nil, fmt.Errorf("failed to render dialog page: %w", err)
	}
	return buf.Bytes(), nil
}

// PostsHTML renders a community posts archive as a standalone page
func (r *Renderer) PostsHTML(archive *normalize.PostsArchive) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.postsTmpl.Execute(&buf, archive); err != nil {
		return nil, fmt.Errorf("failed to render posts page: %w", err)
	}
	return buf.Bytes(), nil
}

const dialogPageTemplate = `<!DOCTYPE html>
<html lang="ru">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 0 auto; max-width: 860px; padding: 20px; background: #edeef0; }
h1 { font-size: 20px; }
.message { background: #fff; border-radius: 8px; padding: 12px 16px; margin-bottom: 8px; }
.meta { color: #818c99; font-size: 12px; margin-bottom: 4px; }
.meta a { color: #2a5885; text-decoration: none; margin-left: 6px; }
.text { font-size: 14px; white-space: normal; }
.attachment { margin-top: 8px; font-size: 13px; }
.attachment img { max-width: 400px; border-radius: 4px; display: block; }
.attachment a { color: #2a5885; }
.forwarded { border-left: 2px solid #2a5885; margin: 8px 0 0 8px; padding-left: 12px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Messages}}{{template "message" .}}{{end}}
</body>
</html>
{{define "message"}}
<div class="message">
<div class="meta">id {{.FromID}} · {{.DateFormatted}}{{if .Link}}<a href="{{.Link}}" target="_blank">&#128279;</a>{{end}}</div>
{{if .Text}}<div class="text">{{formatText .Text}}</div>{{end}}
{{range .Attachments}}{{template "attachment" .}}{{end}}
{{if .ReplyMessage}}<div class="forwarded">{{template "message" .ReplyMessage}}</div>{{end}}
{{range .ForwardedMessages}}<div class="forwarded">{{template "message" .}}</div>{{end}}
</div>
{{end}}
{{define "attachment"}}
<div class="attachment">
{{if eq .Type "photo"}}<img src="{{localize .URL}}" onerror="this.onerror=null;this.src='{{.URL}}';" alt="photo">
{{else if eq .Type "sticker"}}<img src="{{localize .URL}}" onerror="this.onerror=null;this.src='{{.URL}}';" alt="sticker">
{{else if eq .Type "video"}}<a href="{{.Link}}" target="_blank">&#127909; {{.Title}}</a>
{{else if eq .Type "doc"}}<a href="{{.URL}}" target="_blank">&#128206; {{.Title}}</a>
{{else if eq .Type "audio"}}&#127925; {{.Artist}} — {{.Title}}
{{else if eq .Type "link"}}<a href="{{.URL}}" target="_blank">{{if .Title}}{{.Title}}{{else}}{{.URL}}{{end}}</a>
{{else if eq .Type "wall"}}<a href="{{.Link}}" target="_blank">&#128221; Запись на стене</a>{{if .Text}}<div class="text">{{formatText .Text}}</div>{{end}}
{{else}}[{{.Type}}]
{{end}}
</div>
{{end}}`

const postsPageTemplate = `<!DOCTYPE html>
<html lang="ru">
<head>
<meta charset="utf-8">
<title>{{if .Community}}{{.Community.Name}}{{else}}Записи сообщества{{end}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 0 auto; max-width: 860px; padding: 20px; background: #edeef0; }
h1 { font-size: 20px; }
.community { background: #fff; border-radius: 8px; padding: 12px 16px; margin-bottom: 16px; font-size: 13px; }
.community a { color: #2a5885; }
#search { width: 100%; box-sizing: border-box; padding: 10px; font-size: 14px; border: 1px solid #d3d9de; border-radius: 8px; margin-bottom: 16px; }
.post { background: #fff; border-radius: 8px; padding: 12px 16px; margin-bottom: 12px; }
.meta { color: #818c99; font-size: 12px; margin-bottom: 4px; }
.meta a { color: #2a5885; text-decoration: none; margin-left: 6px; }
.text { font-size: 14px; }
.stats { color: #818c99; font-size: 12px; margin-top: 8px; }
.attachment { margin-top: 8px; font-size: 13px; }
.attachment img { max-width: 400px; border-radius: 4px; display: block; }
.attachment a { color: #2a5885; }
.repost { border-left: 2px solid #2a5885; margin: 8px 0 0 8px; padding-left: 12px; }
.comments { margin-top: 12px; border-top: 1px solid #e7e8ec; padding-top: 8px; }
.comment { margin-bottom: 8px; font-size: 13px; }
.hidden { display: none; }
</style>
</head>
<body>
<h1>{{if .Community}}{{.Community.Name}}{{else}}Записи сообщества{{end}}</h1>
{{if .Community}}
<div class="community">
{{if .Community.Description}}<div>{{formatText .Community.Description}}</div>{{end}}
{{if .Community.MembersCount}}<div>Участников: {{.Community.MembersCount}}</div>{{end}}
<a href="{{.Community.Link}}" target="_blank">{{.Community.Link}}</a>
· экспорт от {{.ExportDate}} · записей: {{.PostsCount}}
</div>
{{end}}
<input id="search" type="text" placeholder="Поиск по записям...">
<div id="posts">
{{range .Posts}}{{template "post" .}}{{end}}
</div>
<script>
document.getElementById('search').addEventListener('input', function () {
  var query = this.value.toLowerCase();
  var posts = document.querySelectorAll('#posts > .post');
  for (var i = 0; i < posts.length; i++) {
    var text = posts[i].textContent.toLowerCase();
    posts[i].classList.toggle('hidden', query !== '' && text.indexOf(query) === -1);
  }
});
</script>
</body>
</html>
{{define "post"}}
<div class="post">
<div class="meta">{{.DateFormatted}}{{if .IsPinned}} · закреплено{{end}}<a href="{{.Link}}" target="_blank">&#128279;</a></div>
{{if .Text}}<div class="text">{{formatText .Text}}</div>{{end}}
{{range .Attachments}}{{template "attachment" .}}{{end}}
{{range .CopyHistory}}<div class="repost">{{template "post" .}}</div>{{end}}
<div class="stats">
{{if .Likes}}&#10084; {{.Likes.Count}} {{end}}
{{if .RepostsCount}}&#8618; {{.RepostsCount}} {{end}}
{{if .Views}}&#128065; {{.Views}}{{end}}
</div>
{{if .Comments}}
<div class="comments">
{{range .Comments}}
<div class="comment">
<div class="meta">id {{.FromID}} · {{.DateFormatted}}{{if .Link}}<a href="{{.Link}}" target="_blank">&#128279;</a>{{end}}</div>
{{if .Text}}<div class="text">{{formatText .Text}}</div>{{end}}
{{range .Attachments}}{{template "attachment" .}}{{end}}
</div>
{{end}}
</div>
{{end}}
</div>
{{end}}
{{define "attachment"}}
<div class="attachment">
{{if eq .Type "photo"}}<img src="{{localize .URL}}" onerror="this.onerror=null;this.src='{{.URL}}';" alt="photo">
{{else if eq .Type "sticker"}}<img src="{{localize .URL}}" onerror="this.onerror=null;this.src='{{.URL}}';" alt="sticker">
{{else if eq .Type "video"}}<a href="{{.Link}}" target="_blank">&#127909; {{.Title}}</a>
{{else if eq .Type "doc"}}<a href="{{.URL}}" target="_blank">&#128206; {{.Title}}</a>
{{else if eq .Type "audio"}}&#127925; {{.Artist}} — {{.Title}}
{{else if eq .Type "link"}}<a href="{{.URL}}" target="_blank">{{if .Title}}{{.Title}}{{else}}{{.URL}}{{end}}</a>
{{else if eq .Type "wall"}}<a href="{{.Link}}" target="_blank">&#128221; Запись на стене</a>{{if .Text}}<div class="text">{{formatText .Text}}</div>{{end}}
{{else}}[{{.Type}}]
{{end}}
</div>
{{end}}`
