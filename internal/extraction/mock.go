package extraction

import (
	"net/url"
	"strings"
)

// Mock synthesises a generic profile from the target's domain. It never fails.
func Mock(targetURL string) Result {
	domain := "this company"
	if u, err := url.Parse(targetURL); err == nil && u.Hostname() != "" {
		domain = strings.TrimPrefix(u.Hostname(), "www.")
	}

	return Result{
		Summary: domain + " is a forward-thinking company focused on innovation, growth, and delivering value through technology and customer-centric solutions.",
		WhatTheyDo: []string{
			"Develop cutting-edge software and digital solutions",
			"Provide enterprise services and infrastructure",
			"Drive innovation and continuous improvement",
			"Focus on scalability and customer success",
		},
		Keywords: []string{
			"technology",
			"innovation",
			"enterprise",
			"software",
			"solutions",
			"growth",
			"scalability",
			"digital",
		},
		Signals: []string{
			"Active careers and hiring initiatives",
			"Recent product updates and releases",
			"Strong technical and engineering focus",
			"Transparent and engaged community",
		},
		Method: MethodMock,
	}
}
