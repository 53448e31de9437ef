// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package topics checks MQTT topic filter syntax.
package topics

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MaxFilterLength is the longest filter a 2-byte length prefix can carry.
const MaxFilterLength = 65535

// Validation errors.
var (
	ErrEmptyFilter      = errors.New("topic filter is empty")
	ErrFilterTooLong    = errors.New("topic filter too long")
	ErrInvalidEncoding  = errors.New("topic filter is not valid UTF-8 or contains null")
	ErrInvalidWildcard  = errors.New("invalid wildcard in topic filter")
	ErrInvalidTopicName = errors.New("invalid topic name: contains wildcards or illegal characters")
)

// ValidateFilter checks a SUBSCRIBE topic filter: '+' must fill a whole
// level and '#' must be the whole last level.
func ValidateFilter(filter string) error {
	if filter == "" {
		return ErrEmptyFilter
	}
	if len(filter) > MaxFilterLength {
		return ErrFilterTooLong
	}
	if !utf8.ValidString(filter) || strings.ContainsRune(filter, 0) {
		return ErrInvalidEncoding
	}

	levels := strings.Split(filter, "/")
	for i, level := range levels {
		switch {
		case level == "#":
			if i != len(levels)-1 {
				return ErrInvalidWildcard
			}
		case level == "+":
		case strings.ContainsAny(level, "+#"):
			return ErrInvalidWildcard
		}
	}

	return nil
}

// ValidateTopicName checks a PUBLISH topic name, which must not contain
// wildcards.
func ValidateTopicName(topic string) error {
	if topic == "" || strings.ContainsAny(topic, "+#") {
		return ErrInvalidTopicName
	}
	if !utf8.ValidString(topic) || strings.ContainsRune(topic, 0) {
		return ErrInvalidTopicName
	}
	return nil
}
