/*
Package hydrogen is a Django-style template engine that compiles templates to
programs for a small virtual machine.

Templates use three kinds of tags:

	{{ user.name|default:"stranger"|capfirst }}   print a variable
	{% if user.admin and not empty items %}...{% endif %}   block tags
	{# a comment #}

and compose through inheritance:

	base.html:  <title>{% block title %}Site{% endblock %}</title>
	page.html:  {% extends "base.html" %}{% block title %}{% parentblock %} | Page{% endblock %}

Usage example

Typically in a web application you have a directory containing views for all
of your pages.  On startup, create an engine for that directory:

	var engine = hydrogen.NewEngine(hydrogen.DirLoader{Root: "views", Suffix: ".html"}).
		WithConfig(cfg).                    // autoescape, base url, locale...
		AddGlobalsFile("views/globals.txt"). // name = literal, one per line
		WatchFiles(mode == "dev")            // recompile on changes (in dev)

To render a page:

	err := engine.Render(resp, "account/overview", data.Map{
		"user":    data.New(user),
		"account": data.New(account),
	})

Programs are compiled once per template version and cached; rendering is
safe for concurrent use.

Advanced Usage

The hydrogen package provides a friendly interface to its sub-packages.  The
parse package exposes the Parser and Tag interfaces for custom tags, the
filters package the filter registry, and the bytecode package the compiled
Program and its listing.
*/
package hydrogen
