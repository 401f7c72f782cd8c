package common

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// ImagePrefix returns the key shared by all the bands fetched in one request
// for the parcel: YYYYMMDD_<analysis type>_<parcel id>_<user id>
// The ids are escaped with EscapeID, so that two parcels never share a prefix.
func ImagePrefix(date time.Time, analysisType AnalysisType, parcel Parcel) string {
	return fmt.Sprintf("%s_%s_%s_%s", date.Format("20060102"), analysisType, EscapeID(parcel.ID), EscapeID(parcel.UserID))
}

// EscapeID percent-encodes all the bytes of id except [A-Za-z0-9-]
func EscapeID(id string) string {
	var sb strings.Builder
	for i := 0; i < len(id); i++ {
		switch c := id[i]; {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9', c == '-':
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, "%%%02X", c)
		}
	}
	return sb.String()
}

// BandFileName returns the name of the file storing the band of the batch identified by prefix
func BandFileName(band SpectralBand, prefix string) string {
	return fmt.Sprintf("band_%s-%s.png", band, prefix)
}

// Info returns the identifiers of a fetch, to be used with FormatBrackets
func Info(date time.Time, analysisType AnalysisType, parcel Parcel) map[string]string {
	return map[string]string{
		"USER":     EscapeID(parcel.UserID),
		"PARCEL":   EscapeID(parcel.ID),
		"ANALYSIS": analysisType.String(),
		"DATE":     date.Format("20060102"),
		"YEAR":     date.Format("2006"),
		"MONTH":    date.Format("01"),
		"DAY":      date.Format("02"),
	}
}

/**
 * FormatBrackets replaces in <str> all {keys} of <info> by the corresponding value
 * keys must be one of USER, PARCEL, ANALYSIS, DATE(YEAR/MONTH/DAY)
 */
func FormatBrackets(str string, infos ...map[string]string) string {
	for _, info := range infos {
		for k, v := range info {
			str = strings.ReplaceAll(str, "{"+k+"}", v)
		}
	}
	return str
}

// StorageKey returns the path of the file in the storage, given an optional layout (e.g. "{USER}/{PARCEL}")
func StorageKey(layout string, info map[string]string, filename string) string {
	if layout == "" {
		return filename
	}
	return path.Join(FormatBrackets(layout, info), filename)
}
