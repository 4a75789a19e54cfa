// Copyright 2024 recsys Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// stopWordsEnglish is the NLTK English stop word list.
var stopWordsEnglish = []string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you",
	"your", "yours", "yourself", "yourselves", "he", "him", "his",
	"himself", "she", "her", "hers", "herself", "it", "its", "itself",
	"they", "them", "their", "theirs", "themselves", "what", "which",
	"who", "whom", "this", "that", "these", "those", "am", "is", "are",
	"was", "were", "be", "been", "being", "have", "has", "had", "having",
	"do", "does", "did", "doing", "a", "an", "the", "and", "but", "if",
	"or", "because", "as", "until", "while", "of", "at", "by", "for",
	"with", "about", "against", "between", "into", "through", "during",
	"before", "after", "above", "below", "to", "from", "up", "down", "in",
	"out", "on", "off", "over", "under", "again", "further", "then",
	"once", "here", "there", "when", "where", "why", "how", "all", "any",
	"both", "each", "few", "more", "most", "other", "some", "such", "no",
	"nor", "not", "only", "own", "same", "so", "than", "too", "very", "s",
	"t", "can", "will", "just", "don", "should", "now", "d", "ll", "m",
	"o", "re", "ve", "y", "ain", "aren", "couldn", "didn", "doesn",
	"hadn", "hasn", "haven", "isn", "ma", "mightn", "mustn", "needn",
	"shan", "shouldn", "wasn", "weren", "won", "wouldn",
}

// stopWordsIndonesian is the Sastrawi Indonesian stop word list.
var stopWordsIndonesian = []string{
	"yang", "untuk", "pada", "ke", "para", "namun", "menurut", "antara",
	"dia", "dua", "ia", "seperti", "jika", "sehingga", "kembali", "dan",
	"tidak", "ini", "karena", "kepada", "oleh", "saat", "harus",
	"sementara", "setelah", "belum", "kami", "sekitar", "bagi", "serta",
	"di", "dari", "telah", "sebagai", "masih", "hal", "ketika", "adalah",
	"itu", "dalam", "bisa", "bahwa", "atau", "hanya", "kita", "dengan",
	"akan", "juga", "ada", "mereka", "sudah", "saya", "terhadap",
	"secara", "agar", "lain", "anda", "begitu", "mengapa", "kenapa",
	"yaitu", "yakni", "daripada", "itulah", "lagi", "maka", "tentang",
	"demi", "dimana", "kemana", "pula", "sambil", "sebelum", "sesudah",
	"supaya", "guna", "kah", "pun", "sampai", "sedangkan", "selagi",
	"tetapi", "apakah", "kecuali", "sebab", "selain", "seolah", "seraya",
	"seterusnya", "tanpa", "agak", "boleh", "dapat", "dsb", "dst", "dll",
	"dahulu", "dulunya", "anu", "demikian", "tapi", "ingin", "nggak",
	"mari", "nanti", "melainkan", "oh", "ok", "seharusnya", "sebetulnya",
	"setiap", "setidaknya", "sesuatu", "pasti", "saja", "toh", "ya",
	"walau", "tolong", "tentu", "amat", "apalagi", "bagaimanapun",
}

// StopWords returns the union of the Indonesian and English stop word
// lists. Duplicates between the two lists are irrelevant.
func StopWords() mapset.Set[string] {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, word := range stopWordsIndonesian {
		set.Add(word)
	}
	for _, word := range stopWordsEnglish {
		set.Add(word)
	}
	return set
}
