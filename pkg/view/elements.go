package view

// Element helpers for the tags pages and documents typically need.

func Html(args ...any) *Node   { return El("html", args...) }
func Head(args ...any) *Node   { return El("head", args...) }
func Body(args ...any) *Node   { return El("body", args...) }
func Title(args ...any) *Node  { return El("title", args...) }
func Meta(args ...any) *Node   { return El("meta", args...) }
func Link(args ...any) *Node   { return El("link", args...) }
func Script(args ...any) *Node { return El("script", args...) }
func Div(args ...any) *Node    { return El("div", args...) }
func Span(args ...any) *Node   { return El("span", args...) }
func Main(args ...any) *Node   { return El("main", args...) }
func P(args ...any) *Node      { return El("p", args...) }
func A(args ...any) *Node      { return El("a", args...) }
func H1(args ...any) *Node     { return El("h1", args...) }
func H2(args ...any) *Node     { return El("h2", args...) }
func Ul(args ...any) *Node     { return El("ul", args...) }
func Li(args ...any) *Node     { return El("li", args...) }
func Button(args ...any) *Node { return El("button", args...) }
func Img(args ...any) *Node    { return El("img", args...) }

// Attribute helpers.

func ID(id string) Attr           { return Attr{Key: "id", Value: id} }
func Class(class string) Attr     { return Attr{Key: "class", Value: class} }
func Href(href string) Attr       { return Attr{Key: "href", Value: href} }
func Target(target string) Attr   { return Attr{Key: "target", Value: target} }
func Name(name string) Attr       { return Attr{Key: "name", Value: name} }
func Content(value string) Attr   { return Attr{Key: "content", Value: value} }
func Rel(rel string) Attr         { return Attr{Key: "rel", Value: rel} }
func Src(src string) Attr         { return Attr{Key: "src", Value: src} }
func Lang(lang string) Attr       { return Attr{Key: "lang", Value: lang} }
func Charset(charset string) Attr { return Attr{Key: "charset", Value: charset} }
