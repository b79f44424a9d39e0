/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package text

import (
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

const (
	UTF8 = "UTF-8"
)

var (
	expectedCharsets = []string{UTF8, "GB-18030", "UTF-16LE", "UTF-16BE", "ISO-8859-1"}
	decoderMap       = make(map[string]encoding.Encoding)
)

func init() {
	decoderMap["GB-18030"] = simplifiedchinese.GB18030
	// alias
	decoderMap["GB18030"] = simplifiedchinese.GB18030
	decoderMap["GBK"] = simplifiedchinese.GB18030
	decoderMap["GB2312"] = simplifiedchinese.GB18030
	decoderMap["UTF-16LE"] = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	decoderMap["UTF-16BE"] = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	decoderMap["ISO-8859-1"] = charmap.ISO8859_1
	decoderMap["LATIN1"] = charmap.ISO8859_1
}

// DetectCharset detects charset from bytes
func DetectCharset(bs []byte) string {
	if charsetResults, err := chardet.NewTextDetector().DetectAll(bs); err == nil {
		for _, expected := range expectedCharsets {
			for _, result := range charsetResults {
				if result.Charset == expected {
					return result.Charset
				}
			}
		}
	}

	return UTF8
}

// GetEncoding returns the decoder of charset, nil for UTF-8 and unknown charsets.
func GetEncoding(charset string) encoding.Encoding {
	return decoderMap[strings.ToUpper(charset)]
}

// ToUTF8 converts bs to UTF-8. An empty charset means detect it. The charset actually used is returned.
func ToUTF8(bs []byte, charset string) ([]byte, string, error) {
	if charset == "" {
		charset = DetectCharset(bs)
	}
	enc := GetEncoding(charset)
	if enc == nil {
		return bs, UTF8, nil
	}
	out, err := enc.NewDecoder().Bytes(bs)
	if err != nil {
		return nil, charset, err
	}
	return out, charset, nil
}
