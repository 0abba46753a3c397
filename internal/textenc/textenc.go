// Package textenc 将用户给出的编码标识（名称或数字代码页）解析为 x/text 编码。
package textenc

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"

	"hugefile/pkg/contract"
)

// Encoding 为解析结果：x/text 编码与其规范名。
type Encoding struct {
	encoding.Encoding
	Name string
}

// UTF8 为缺省编码（locale 未声明字符集时使用）。
var UTF8 = Encoding{Encoding: unicode.UTF8, Name: "utf-8"}

// codePages: Windows 代码页号 → 编码。仅收录 x/text 可表达的条目。
var codePages = map[int]Encoding{
	37:    {charmap.CodePage037, "ibm037"},
	437:   {charmap.CodePage437, "ibm437"},
	850:   {charmap.CodePage850, "ibm850"},
	852:   {charmap.CodePage852, "ibm852"},
	855:   {charmap.CodePage855, "ibm855"},
	858:   {charmap.CodePage858, "ibm00858"},
	860:   {charmap.CodePage860, "ibm860"},
	862:   {charmap.CodePage862, "ibm862"},
	863:   {charmap.CodePage863, "ibm863"},
	865:   {charmap.CodePage865, "ibm865"},
	866:   {charmap.CodePage866, "ibm866"},
	874:   {charmap.Windows874, "windows-874"},
	932:   {japanese.ShiftJIS, "shift_jis"},
	936:   {simplifiedchinese.GBK, "gbk"},
	949:   {korean.EUCKR, "euc-kr"},
	950:   {traditionalchinese.Big5, "big5"},
	1047:  {charmap.CodePage1047, "ibm1047"},
	1140:  {charmap.CodePage1140, "ibm01140"},
	1200:  {unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), "utf-16"},
	1201:  {unicode.UTF16(unicode.BigEndian, unicode.UseBOM), "utf-16be"},
	1250:  {charmap.Windows1250, "windows-1250"},
	1251:  {charmap.Windows1251, "windows-1251"},
	1252:  {charmap.Windows1252, "windows-1252"},
	1253:  {charmap.Windows1253, "windows-1253"},
	1254:  {charmap.Windows1254, "windows-1254"},
	1255:  {charmap.Windows1255, "windows-1255"},
	1256:  {charmap.Windows1256, "windows-1256"},
	1257:  {charmap.Windows1257, "windows-1257"},
	1258:  {charmap.Windows1258, "windows-1258"},
	10000: {charmap.Macintosh, "macintosh"},
	10007: {charmap.MacintoshCyrillic, "x-mac-cyrillic"},
	12000: {utf32.UTF32(utf32.LittleEndian, utf32.UseBOM), "utf-32"},
	12001: {utf32.UTF32(utf32.BigEndian, utf32.UseBOM), "utf-32be"},
	20866: {charmap.KOI8R, "koi8-r"},
	20932: {japanese.EUCJP, "euc-jp"},
	21866: {charmap.KOI8U, "koi8-u"},
	28591: {charmap.ISO8859_1, "iso-8859-1"},
	28592: {charmap.ISO8859_2, "iso-8859-2"},
	28593: {charmap.ISO8859_3, "iso-8859-3"},
	28594: {charmap.ISO8859_4, "iso-8859-4"},
	28595: {charmap.ISO8859_5, "iso-8859-5"},
	28596: {charmap.ISO8859_6, "iso-8859-6"},
	28597: {charmap.ISO8859_7, "iso-8859-7"},
	28598: {charmap.ISO8859_8, "iso-8859-8"},
	28599: {charmap.ISO8859_9, "iso-8859-9"},
	28603: {charmap.ISO8859_13, "iso-8859-13"},
	28605: {charmap.ISO8859_15, "iso-8859-15"},
	50220: {japanese.ISO2022JP, "iso-2022-jp"},
	51932: {japanese.EUCJP, "euc-jp"},
	51949: {korean.EUCKR, "euc-kr"},
	54936: {simplifiedchinese.GB18030, "gb18030"},
	65001: {unicode.UTF8, "utf-8"},
}

// Lookup 解析编码标识：
// - 空串：取 locale 缺省（见 Default）；
// - 纯数字：按 Windows 代码页解析；
// - 其余：先按 WHATWG 标签（htmlindex），再按 IANA 名称（ianaindex）。
// 无法识别时返回包装 contract.ErrEncoding 的错误。
func Lookup(id string) (Encoding, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Default(), nil
	}
	if cp, err := strconv.Atoi(id); err == nil {
		e, ok := codePages[cp]
		if !ok {
			return Encoding{}, fmt.Errorf("%w: code page %d", contract.ErrEncoding, cp)
		}
		return e, nil
	}
	if e, err := htmlindex.Get(id); err == nil {
		return Encoding{Encoding: e, Name: canonicalName(e, id)}, nil
	}
	// ianaindex 对“已知但不支持”的名称返回 (nil, nil)
	if e, err := ianaindex.IANA.Encoding(id); err == nil && e != nil {
		return Encoding{Encoding: e, Name: canonicalName(e, id)}, nil
	}
	return Encoding{}, fmt.Errorf("%w: %q", contract.ErrEncoding, id)
}

// Default 返回平台 locale 的缺省编码：
// 依次读取 LC_ALL、LC_CTYPE、LANG 中 "lang_REGION.CHARSET" 的字符集部分；
// 缺失或无法识别时退回 UTF-8。
func Default() Encoding {
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		return fromLocale(v)
	}
	return UTF8
}

func fromLocale(v string) Encoding {
	dot := strings.IndexByte(v, '.')
	if dot < 0 {
		return UTF8
	}
	cs := v[dot+1:]
	if at := strings.IndexByte(cs, '@'); at >= 0 {
		cs = cs[:at]
	}
	if cs == "" {
		return UTF8
	}
	if e, err := htmlindex.Get(cs); err == nil {
		return Encoding{Encoding: e, Name: canonicalName(e, cs)}
	}
	return UTF8
}

func canonicalName(e encoding.Encoding, fallback string) string {
	if n, err := htmlindex.Name(e); err == nil && n != "" {
		return n
	}
	if n, err := ianaindex.IANA.Name(e); err == nil && n != "" {
		return strings.ToLower(n)
	}
	return strings.ToLower(fallback)
}
