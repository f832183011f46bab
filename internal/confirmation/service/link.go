package service

import (
	"net/url"
	"strings"
)

// ConfirmationLink builds "<instanceURL>/confirm?id=<escaped id>". Links
// already mailed depend on this exact shape.
func ConfirmationLink(instanceURL, id string) string {
	return strings.TrimRight(instanceURL, "/") + "/confirm?id=" + url.QueryEscape(id)
}
